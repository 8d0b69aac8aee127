// Package omdb looks up single titles by IMDb id on the OMDb API.
package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/skrigel/cinema-by-the-numbers/internal/record"
	"github.com/skrigel/cinema-by-the-numbers/internal/transport"
)

const DefaultBaseURL = "http://www.omdbapi.com/"

// ErrNotFound is returned when OMDb answers with Response "False".
var ErrNotFound = errors.New("omdb: title not found")

// Getter is the transport capability the client needs.
type Getter interface {
	Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*transport.Response, error)
}

// Client queries OMDb with an API key.
type Client struct {
	baseURL string
	apiKey  string
	http    Getter
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(http Getter, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: http}
}

// Lookup fetches one title by IMDb id.
func (c *Client) Lookup(ctx context.Context, imdbID string) (Movie, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("i", imdbID)

	resp, err := c.http.Get(ctx, c.baseURL, nil, params)
	if err != nil {
		return Movie{}, err
	}
	if err := transport.CheckStatus(resp); err != nil {
		return Movie{}, err
	}

	var m Movie
	if err := resp.JSON(&m); err != nil {
		return Movie{}, fmt.Errorf("decoding title %s: %w", imdbID, err)
	}
	if m.Response != nil && strings.EqualFold(*m.Response, "False") {
		msg := "unknown error"
		if m.Error != nil {
			msg = *m.Error
		}
		return Movie{}, fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return m, nil
}

// FetchDetail implements collect.DetailFetcher.
func (c *Client) FetchDetail(ctx context.Context, id string) (record.Record, error) {
	m, err := c.Lookup(ctx, id)
	if err != nil {
		return record.Record{}, err
	}
	return Flatten(m), nil
}
