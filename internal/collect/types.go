// Package collect drives sequential collection runs against the movie APIs.
//
// Collector walks listing pages (or an explicit id list), fetches one detail
// record per item with a retry policy, sleeps a fixed delay between items,
// and checkpoints progress so an interrupted run can resume. Lookup is the
// simpler id-driven loop with no retry and no persistence.
package collect

import (
	"context"

	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// Item is one entry on a listing page. Extra fields are merged into the
// detail record after a successful fetch.
type Item struct {
	ID    string
	Extra []record.Field
}

// Page is one page of a listing endpoint.
type Page struct {
	Items      []Item
	TotalPages int
}

// PageSource fetches listing pages, starting at 1.
type PageSource interface {
	FetchPage(ctx context.Context, page int) (Page, error)
}

// DetailFetcher fetches and flattens the full record for one id.
//
// Errors for which the retry policy's Retryable returns true are retried;
// every other error is a terminal outcome for that id.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id string) (record.Record, error)
}

// Result is the outcome of a collection run.
type Result struct {
	// Records holds at most the target count, in fetch order.
	Records []record.Record
	// Errors is the full error log, including entries loaded on resume.
	Errors []checkpoint.ErrorEntry

	// Resumed is the number of records loaded from a checkpoint.
	Resumed int
	// Fetched is the number of items attempted in this run.
	Fetched int
	// Skipped is the number of items skipped because they were already processed.
	Skipped int
	// Pages is the number of listing pages fetched successfully.
	Pages int

	// PageErr is set when a listing page could not be fetched. The run
	// stopped early and Records holds what was collected before it.
	PageErr error
}
