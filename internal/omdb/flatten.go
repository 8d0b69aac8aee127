package omdb

import (
	"strings"

	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// IDKey is the column holding the IMDb id in flattened records.
const IDKey = "imdbID"

// Flatten copies every top-level scalar into a flat record in OMDb's own
// field order, then appends unmodelled scalars, then one Rating_<Source>
// column per rating.
func Flatten(m Movie) record.Record {
	r := record.New(
		record.Field{Key: "Title", Value: str(m.Title)},
		record.Field{Key: "Year", Value: str(m.Year)},
		record.Field{Key: "Rated", Value: str(m.Rated)},
		record.Field{Key: "Released", Value: str(m.Released)},
		record.Field{Key: "Runtime", Value: str(m.Runtime)},
		record.Field{Key: "Genre", Value: str(m.Genre)},
		record.Field{Key: "Director", Value: str(m.Director)},
		record.Field{Key: "Writer", Value: str(m.Writer)},
		record.Field{Key: "Actors", Value: str(m.Actors)},
		record.Field{Key: "Plot", Value: str(m.Plot)},
		record.Field{Key: "Language", Value: str(m.Language)},
		record.Field{Key: "Country", Value: str(m.Country)},
		record.Field{Key: "Awards", Value: str(m.Awards)},
		record.Field{Key: "Poster", Value: str(m.Poster)},
		record.Field{Key: "Metascore", Value: str(m.Metascore)},
		record.Field{Key: "imdbRating", Value: str(m.IMDbRating)},
		record.Field{Key: "imdbVotes", Value: str(m.IMDbVotes)},
		record.Field{Key: "imdbID", Value: str(m.IMDbID)},
		record.Field{Key: "Type", Value: str(m.Type)},
		record.Field{Key: "DVD", Value: str(m.DVD)},
		record.Field{Key: "BoxOffice", Value: str(m.BoxOffice)},
		record.Field{Key: "Production", Value: str(m.Production)},
		record.Field{Key: "Website", Value: str(m.Website)},
		record.Field{Key: "Response", Value: str(m.Response)},
	)
	if m.TotalSeasons != nil {
		r.Set("totalSeasons", *m.TotalSeasons)
	}
	for _, e := range m.Extra {
		r.Set(e.Key, e.Value)
	}
	for _, rt := range m.Ratings {
		if rt.Source == "" {
			continue
		}
		r.Set(RatingKey(rt.Source), rt.Value)
	}
	return r
}

// RatingKey derives the column name for a rating source, e.g.
// "Internet Movie Database" -> "Rating_InternetMovieDatabase".
func RatingKey(source string) string {
	clean := strings.NewReplacer(" ", "", "(", "", ")", "").Replace(source)
	return "Rating_" + clean
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
