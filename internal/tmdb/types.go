package tmdb

// ListingPage mirrors the paged JSON returned by /discover/movie and
// /movie/now_playing.
type ListingPage struct {
	Page         int           `json:"page"`
	Results      []ListingItem `json:"results"`
	TotalPages   *int          `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// ListingItem is the summary record for one movie on a listing page.
type ListingItem struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	ReleaseDate *string  `json:"release_date"`
	Popularity  *float64 `json:"popularity"`
}

// MovieDetails mirrors the JSON returned by /movie/{id}. Pointer fields are
// optional in the payload and flatten to null when absent.
type MovieDetails struct {
	ID                  int                 `json:"id"`
	IMDbID              *string             `json:"imdb_id"`
	Title               *string             `json:"title"`
	OriginalTitle       *string             `json:"original_title"`
	OriginalLanguage    *string             `json:"original_language"`
	ReleaseDate         *string             `json:"release_date"`
	Status              *string             `json:"status"`
	Homepage            *string             `json:"homepage"`
	Budget              *int64              `json:"budget"`
	Revenue             *int64              `json:"revenue"`
	Adult               *bool               `json:"adult"`
	Overview            *string             `json:"overview"`
	Tagline             *string             `json:"tagline"`
	Runtime             *int                `json:"runtime"`
	Popularity          *float64            `json:"popularity"`
	VoteAverage         *float64            `json:"vote_average"`
	VoteCount           *int                `json:"vote_count"`
	OriginCountry       []string            `json:"origin_country"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	BelongsToCollection *Collection         `json:"belongs_to_collection"`
}

type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	ISO6391     string `json:"iso_639_1"`
	Name        string `json:"name"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCompany struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country"`
}

type ProductionCountry struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

type Collection struct {
	ID   int     `json:"id"`
	Name *string `json:"name"`
}

// genreList is the JSON returned by /genre/movie/list.
type genreList struct {
	Genres []Genre `json:"genres"`
}
