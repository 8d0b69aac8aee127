package collect

import (
	"context"
	"log/slog"

	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// LookupResult is the outcome of Lookup.
type LookupResult struct {
	Records []record.Record
	Failed  []checkpoint.ErrorEntry
}

// Lookup fetches ids in order, one request each, until max records have
// been collected or the list is exhausted. A failed id is logged and
// skipped; nothing is retried. max <= 0 means no limit.
//
// The only error returned is ctx.Err(), together with what was collected.
func Lookup(ctx context.Context, fetcher DetailFetcher, ids []string, max int, logger *slog.Logger) (LookupResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var res LookupResult
	for i, id := range ids {
		if max > 0 && len(res.Records) >= max {
			break
		}
		logger.Debug("requesting title", "index", i, "id", id)

		rec, err := fetcher.FetchDetail(ctx, id)
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err != nil {
			logger.Warn("failed to retrieve title", "id", id, "error", err)
			res.Failed = append(res.Failed, checkpoint.ErrorEntry{ID: id, Message: err.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}
