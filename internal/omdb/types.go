package omdb

import (
	"encoding/json"
	"sort"
)

// Rating is one entry of the OMDb Ratings array.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// Movie mirrors an OMDb title response. All scalar fields are optional.
// Top-level scalar keys not modelled here are kept in Extra.
type Movie struct {
	Title        *string  `json:"Title"`
	Year         *string  `json:"Year"`
	Rated        *string  `json:"Rated"`
	Released     *string  `json:"Released"`
	Runtime      *string  `json:"Runtime"`
	Genre        *string  `json:"Genre"`
	Director     *string  `json:"Director"`
	Writer       *string  `json:"Writer"`
	Actors       *string  `json:"Actors"`
	Plot         *string  `json:"Plot"`
	Language     *string  `json:"Language"`
	Country      *string  `json:"Country"`
	Awards       *string  `json:"Awards"`
	Poster       *string  `json:"Poster"`
	Ratings      []Rating `json:"Ratings"`
	Metascore    *string  `json:"Metascore"`
	IMDbRating   *string  `json:"imdbRating"`
	IMDbVotes    *string  `json:"imdbVotes"`
	IMDbID       *string  `json:"imdbID"`
	Type         *string  `json:"Type"`
	DVD          *string  `json:"DVD"`
	BoxOffice    *string  `json:"BoxOffice"`
	Production   *string  `json:"Production"`
	Website      *string  `json:"Website"`
	TotalSeasons *string  `json:"totalSeasons"`
	Response     *string  `json:"Response"`
	Error        *string  `json:"Error"`

	Extra []ExtraField `json:"-"`
}

// ExtraField is an unmodelled top-level scalar.
type ExtraField struct {
	Key   string
	Value any
}

var knownKeys = map[string]bool{
	"Title": true, "Year": true, "Rated": true, "Released": true, "Runtime": true,
	"Genre": true, "Director": true, "Writer": true, "Actors": true, "Plot": true,
	"Language": true, "Country": true, "Awards": true, "Poster": true, "Ratings": true,
	"Metascore": true, "imdbRating": true, "imdbVotes": true, "imdbID": true, "Type": true,
	"DVD": true, "BoxOffice": true, "Production": true, "Website": true,
	"totalSeasons": true, "Response": true, "Error": true,
}

func (m *Movie) UnmarshalJSON(data []byte) error {
	type plain Movie
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var extraKeys []string
	for k := range raw {
		if !knownKeys[k] {
			extraKeys = append(extraKeys, k)
		}
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		var v any
		if err := json.Unmarshal(raw[k], &v); err != nil {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		p.Extra = append(p.Extra, ExtraField{Key: k, Value: v})
	}

	*m = Movie(p)
	return nil
}
