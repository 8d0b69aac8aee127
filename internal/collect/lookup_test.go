package collect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/skrigel/cinema-by-the-numbers/internal/record"
	"github.com/skrigel/cinema-by-the-numbers/internal/transport"
)

func TestLookup_StopsAtMax(t *testing.T) {
	fetcher := &fakeFetcher{fetchFn: func(_ context.Context, id string, _ int) (record.Record, error) {
		if id == "tt2" {
			return record.Record{}, errors.New("movie not found")
		}
		return movie(id), nil
	}}

	res, err := Lookup(context.Background(), fetcher, []string{"tt1", "tt2", "tt3", "tt4", "tt5"}, 2, nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got := strings.Join(ids(res.Records), ","); got != "tt1,tt3" {
		t.Errorf("records = %s, want tt1,tt3", got)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != "tt2" {
		t.Errorf("failed = %v, want tt2", res.Failed)
	}
	if fetcher.calls["tt4"] != 0 {
		t.Error("requested beyond max")
	}
}

func TestLookup_NoRetry(t *testing.T) {
	fetcher := &fakeFetcher{fetchFn: func(context.Context, string, int) (record.Record, error) {
		return record.Record{}, transientErr()
	}}

	res, err := Lookup(context.Background(), fetcher, []string{"tt1", "tt2"}, 0, nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if fetcher.calls["tt1"] != 1 || fetcher.calls["tt2"] != 1 {
		t.Errorf("calls = %v, want one each", fetcher.calls)
	}
	if len(res.Records) != 0 || len(res.Failed) != 2 {
		t.Errorf("records = %d, failed = %d", len(res.Records), len(res.Failed))
	}
}

func TestLookup_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{fetchFn: func(_ context.Context, id string, _ int) (record.Record, error) {
		if id == "tt2" {
			cancel()
			return record.Record{}, &transport.Error{URL: "x", Err: context.Canceled}
		}
		return movie(id), nil
	}}

	res, err := Lookup(ctx, fetcher, []string{"tt1", "tt2", "tt3"}, 0, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Records) != 1 || len(res.Failed) != 0 {
		t.Errorf("records = %d, failed = %d; want 1, 0", len(res.Records), len(res.Failed))
	}
}
