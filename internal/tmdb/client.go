// Package tmdb talks to The Movie Database v3 API: paged listing endpoints
// (discover, now playing), per-movie details, and the genre list.
package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/skrigel/cinema-by-the-numbers/internal/transport"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

// Getter is the transport capability the client needs.
type Getter interface {
	Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*transport.Response, error)
}

// Client communicates with the TMDB API using a v4 read access token.
type Client struct {
	baseURL  string
	token    string
	language string
	http     Getter
	logger   *slog.Logger
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(http Getter, baseURL, token, language string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		language: language,
		http:     http,
		logger:   slog.Default(),
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.token,
		"Accept":        "application/json",
	}
}

// getJSON fetches path and decodes a 2xx body into v. Non-2xx responses
// return *transport.StatusError; undecodable bodies wrap transport.ErrMalformed.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	q := url.Values{}
	if c.language != "" {
		q.Set("language", c.language)
	}
	for k, vs := range params {
		q[k] = vs
	}

	resp, err := c.http.Get(ctx, c.baseURL+path, c.headers(), q)
	if err != nil {
		return err
	}
	if err := transport.CheckStatus(resp); err != nil {
		return err
	}
	if err := resp.JSON(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Discover returns one page of /discover/movie. params are passed through
// (sort_by, primary_release_date.lte, ...); page overrides any page in params.
func (c *Client) Discover(ctx context.Context, page int, params url.Values) (ListingPage, error) {
	return c.listing(ctx, "/discover/movie", page, params)
}

// NowPlaying returns one page of /movie/now_playing.
func (c *Client) NowPlaying(ctx context.Context, page int, params url.Values) (ListingPage, error) {
	return c.listing(ctx, "/movie/now_playing", page, params)
}

func (c *Client) listing(ctx context.Context, path string, page int, params url.Values) (ListingPage, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(page))

	var lp ListingPage
	if err := c.getJSON(ctx, path, q, &lp); err != nil {
		return ListingPage{}, err
	}
	c.logger.Debug("listing page fetched", "path", path, "page", page, "results", len(lp.Results))
	return lp, nil
}

// Details returns the full metadata for one movie.
func (c *Client) Details(ctx context.Context, id int) (MovieDetails, error) {
	var m MovieDetails
	if err := c.getJSON(ctx, "/movie/"+strconv.Itoa(id), nil, &m); err != nil {
		return MovieDetails{}, err
	}
	return m, nil
}

// Genres returns the movie genre list.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var gl genreList
	if err := c.getJSON(ctx, "/genre/movie/list", nil, &gl); err != nil {
		return nil, err
	}
	return gl.Genres, nil
}
