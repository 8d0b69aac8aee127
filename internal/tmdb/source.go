package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/skrigel/cinema-by-the-numbers/internal/collect"
	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// Listing selects a paged listing endpoint.
type Listing string

const (
	ListingDiscover   Listing = "discover"
	ListingNowPlaying Listing = "now_playing"
)

// ListingSource adapts a listing endpoint to collect.PageSource.
type ListingSource struct {
	client  *Client
	listing Listing
	params  url.Values
}

// NewListingSource returns a page source over the given listing.
func NewListingSource(c *Client, l Listing, params url.Values) *ListingSource {
	return &ListingSource{client: c, listing: l, params: params}
}

// FetchPage implements collect.PageSource. Discover items carry their
// listing-level release date and popularity so they are merged into the
// detail record.
func (s *ListingSource) FetchPage(ctx context.Context, page int) (collect.Page, error) {
	var (
		lp  ListingPage
		err error
	)
	switch s.listing {
	case ListingDiscover:
		lp, err = s.client.Discover(ctx, page, s.params)
	case ListingNowPlaying:
		lp, err = s.client.NowPlaying(ctx, page, s.params)
	default:
		return collect.Page{}, fmt.Errorf("unknown listing %q", s.listing)
	}
	if err != nil {
		return collect.Page{}, err
	}

	totalPages := 1
	if lp.TotalPages != nil {
		totalPages = *lp.TotalPages
	}

	items := make([]collect.Item, len(lp.Results))
	for i, r := range lp.Results {
		items[i] = collect.Item{ID: strconv.Itoa(r.ID)}
		if s.listing == ListingDiscover {
			items[i].Extra = discoverFields(r)
		}
	}
	return collect.Page{Items: items, TotalPages: totalPages}, nil
}

// DetailFetcher adapts Client.Details to collect.DetailFetcher.
type DetailFetcher struct {
	client *Client
}

// NewDetailFetcher returns a fetcher over the details endpoint.
func NewDetailFetcher(c *Client) DetailFetcher {
	return DetailFetcher{client: c}
}

// FetchDetail implements collect.DetailFetcher.
func (f DetailFetcher) FetchDetail(ctx context.Context, id string) (record.Record, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return record.Record{}, fmt.Errorf("invalid tmdb id %q", id)
	}
	m, err := f.client.Details(ctx, n)
	if err != nil {
		return record.Record{}, err
	}
	return Flatten(m), nil
}
