package tmdb

import (
	"strconv"
	"strings"

	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// IDKey is the column holding the TMDB movie id in flattened records.
const IDKey = "id"

const listSep = ", "

// Flatten maps a details payload onto a flat record with a fixed column
// layout. Absent scalars become nil and absent lists become "".
func Flatten(m MovieDetails) record.Record {
	return record.New(
		record.Field{Key: "id", Value: m.ID},
		record.Field{Key: "imdb_id", Value: str(m.IMDbID)},
		record.Field{Key: "title", Value: str(m.Title)},
		record.Field{Key: "original_title", Value: str(m.OriginalTitle)},
		record.Field{Key: "original_language", Value: str(m.OriginalLanguage)},

		record.Field{Key: "release_date", Value: str(m.ReleaseDate)},
		record.Field{Key: "status", Value: str(m.Status)},
		record.Field{Key: "homepage", Value: str(m.Homepage)},

		record.Field{Key: "budget", Value: i64(m.Budget)},
		record.Field{Key: "revenue", Value: i64(m.Revenue)},

		record.Field{Key: "adult", Value: boolean(m.Adult)},
		record.Field{Key: "overview", Value: str(m.Overview)},
		record.Field{Key: "tagline", Value: str(m.Tagline)},
		record.Field{Key: "runtime", Value: integer(m.Runtime)},

		record.Field{Key: "popularity", Value: float(m.Popularity)},
		record.Field{Key: "vote_average", Value: float(m.VoteAverage)},
		record.Field{Key: "vote_count", Value: integer(m.VoteCount)},

		record.Field{Key: "origin_country", Value: strings.Join(m.OriginCountry, listSep)},
		record.Field{Key: "spoken_languages", Value: join(m.SpokenLanguages, func(l SpokenLanguage) string {
			if l.EnglishName != "" {
				return l.EnglishName
			}
			return l.Name
		})},

		record.Field{Key: "genre_ids", Value: join(m.Genres, func(g Genre) string { return strconv.Itoa(g.ID) })},
		record.Field{Key: "genre_names", Value: join(m.Genres, func(g Genre) string { return g.Name })},

		record.Field{Key: "production_company_ids", Value: join(m.ProductionCompanies, func(c ProductionCompany) string { return strconv.Itoa(c.ID) })},
		record.Field{Key: "production_company_names", Value: join(m.ProductionCompanies, func(c ProductionCompany) string { return c.Name })},
		record.Field{Key: "production_company_countries", Value: join(m.ProductionCompanies, func(c ProductionCompany) string { return c.OriginCountry })},

		record.Field{Key: "production_country_codes", Value: join(m.ProductionCountries, func(c ProductionCountry) string { return c.ISO31661 })},
		record.Field{Key: "production_country_names", Value: join(m.ProductionCountries, func(c ProductionCountry) string { return c.Name })},

		record.Field{Key: "belongs_to_collection", Value: collectionName(m.BelongsToCollection)},
	)
}

// discoverFields are the listing-level values merged into discover records.
func discoverFields(item ListingItem) []record.Field {
	return []record.Field{
		{Key: "discover_release_date", Value: str(item.ReleaseDate)},
		{Key: "discover_popularity", Value: float(item.Popularity)},
	}
}

func join[T any](items []T, f func(T) string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = f(it)
	}
	return strings.Join(parts, listSep)
}

func collectionName(c *Collection) any {
	if c == nil {
		return nil
	}
	return str(c.Name)
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func integer(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func i64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func float(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolean(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
