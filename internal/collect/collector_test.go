package collect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/record"
	"github.com/skrigel/cinema-by-the-numbers/internal/transport"
)

// fakeSource serves pages from pageFn and records which pages were requested.
type fakeSource struct {
	pageFn func(page int) (Page, error)
	calls  []int
}

func (s *fakeSource) FetchPage(_ context.Context, page int) (Page, error) {
	s.calls = append(s.calls, page)
	return s.pageFn(page)
}

// fakeFetcher answers detail requests from fetchFn; call is 1-based per id.
type fakeFetcher struct {
	fetchFn func(ctx context.Context, id string, call int) (record.Record, error)
	calls   map[string]int
	order   []string
}

func (f *fakeFetcher) FetchDetail(ctx context.Context, id string) (record.Record, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[id]++
	f.order = append(f.order, id)
	if f.fetchFn == nil {
		return movie(id), nil
	}
	return f.fetchFn(ctx, id, f.calls[id])
}

// memStore keeps the last snapshot in memory.
type memStore struct {
	snap    *checkpoint.State
	saves   int
	saveErr error
}

func (m *memStore) Load(context.Context) (checkpoint.State, error) {
	if m.snap == nil {
		return checkpoint.State{}, checkpoint.ErrNoCheckpoint
	}
	return *m.snap, nil
}

func (m *memStore) Save(_ context.Context, s checkpoint.State) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = &s
	return nil
}

// sleepRecorder captures every requested wait without blocking.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func movie(id string) record.Record {
	return record.New(
		record.Field{Key: "id", Value: id},
		record.Field{Key: "title", Value: "Movie " + id},
	)
}

// pagesOf returns a page function with per pages of per items each;
// ids are page*100+i.
func pagesOf(total, per int) func(int) (Page, error) {
	return func(page int) (Page, error) {
		items := make([]Item, per)
		for i := range items {
			items[i] = Item{ID: strconv.Itoa(page*100 + i)}
		}
		return Page{Items: items, TotalPages: total}, nil
	}
}

func transientErr() error {
	return &transport.Error{URL: "https://api.themoviedb.org/3/movie/1", Err: errors.New("connection reset by peer")}
}

func newTestCollector(store checkpoint.Store, rec *sleepRecorder, mod func(*Config)) *Collector {
	cfg := Config{
		Store: store,
		IDKey: "id",
		Delay: 350 * time.Millisecond,
		Sleep: rec.sleep,
	}
	if mod != nil {
		mod(&cfg)
	}
	return New(cfg)
}

func ids(recs []record.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i], _ = r.ID("id")
	}
	return out
}

func TestRunPaged_ReturnsExactTargetInOrder(t *testing.T) {
	src := &fakeSource{pageFn: pagesOf(1000, 20)}
	fetcher := &fakeFetcher{}
	c := newTestCollector(&memStore{}, &sleepRecorder{}, nil)

	res, err := c.RunPaged(context.Background(), src, fetcher, 45)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if len(res.Records) != 45 {
		t.Fatalf("got %d records, want 45", len(res.Records))
	}
	got := ids(res.Records)
	if got[0] != "100" || got[19] != "119" || got[20] != "200" || got[44] != "304" {
		t.Errorf("records out of fetch order: %v", got)
	}
	if len(fetcher.order) != 45 {
		t.Errorf("detail requests = %d, want 45", len(fetcher.order))
	}
	if res.Pages != 3 {
		t.Errorf("Pages = %d, want 3", res.Pages)
	}
}

func TestRunPaged_EmptyFirstPage(t *testing.T) {
	src := &fakeSource{pageFn: func(int) (Page, error) {
		return Page{TotalPages: 0}, nil
	}}
	c := newTestCollector(&memStore{}, &sleepRecorder{}, nil)

	res, err := c.RunPaged(context.Background(), src, &fakeFetcher{}, 10)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if len(res.Records) != 0 || res.PageErr != nil {
		t.Errorf("Records = %d, PageErr = %v; want empty, nil", len(res.Records), res.PageErr)
	}
	if len(src.calls) != 1 {
		t.Errorf("page requests = %v, want [1]", src.calls)
	}
}

func TestRunPaged_StopsAtTotalPages(t *testing.T) {
	src := &fakeSource{pageFn: pagesOf(2, 3)}
	c := newTestCollector(&memStore{}, &sleepRecorder{}, nil)

	res, err := c.RunPaged(context.Background(), src, &fakeFetcher{}, 100)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if len(src.calls) != 2 {
		t.Errorf("page requests = %v, want [1 2]", src.calls)
	}
	if len(res.Records) != 6 {
		t.Errorf("got %d records, want 6", len(res.Records))
	}
}

func TestRunPaged_TransientThenSuccessBacksOff(t *testing.T) {
	src := &fakeSource{pageFn: func(int) (Page, error) {
		return Page{Items: []Item{{ID: "7"}}, TotalPages: 1}, nil
	}}
	fetcher := &fakeFetcher{fetchFn: func(_ context.Context, id string, call int) (record.Record, error) {
		if call <= 2 {
			return record.Record{}, transientErr()
		}
		return movie(id), nil
	}}
	rec := &sleepRecorder{}
	c := newTestCollector(&memStore{}, rec, nil)

	res, err := c.RunPaged(context.Background(), src, fetcher, 5)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if got := ids(res.Records); len(got) != 1 || got[0] != "7" {
		t.Fatalf("records = %v, want [7]", got)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v, want none", res.Errors)
	}
	if fetcher.calls["7"] != 3 {
		t.Errorf("attempts = %d, want 3", fetcher.calls["7"])
	}

	want := []time.Duration{time.Second, 2 * time.Second, 350 * time.Millisecond}
	if fmt.Sprint(rec.waits) != fmt.Sprint(want) {
		t.Errorf("waits = %v, want %v", rec.waits, want)
	}
}

func TestRunPaged_RetryExhaustedRecordsError(t *testing.T) {
	src := &fakeSource{pageFn: func(int) (Page, error) {
		return Page{Items: []Item{{ID: "9"}, {ID: "10"}}, TotalPages: 1}, nil
	}}
	fetcher := &fakeFetcher{fetchFn: func(_ context.Context, id string, _ int) (record.Record, error) {
		if id == "9" {
			return record.Record{}, transientErr()
		}
		return movie(id), nil
	}}
	rec := &sleepRecorder{}
	c := newTestCollector(&memStore{}, rec, nil)

	res, err := c.RunPaged(context.Background(), src, fetcher, 5)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if fetcher.calls["9"] != 3 {
		t.Errorf("attempts for 9 = %d, want 3", fetcher.calls["9"])
	}
	if len(res.Errors) != 1 || res.Errors[0].ID != "9" {
		t.Fatalf("errors = %v, want one entry for 9", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Message, "connection reset") {
		t.Errorf("error message = %q", res.Errors[0].Message)
	}
	if got := ids(res.Records); len(got) != 1 || got[0] != "10" {
		t.Errorf("records = %v, want [10]", got)
	}
}

func TestRunPaged_StatusErrorsNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantMsg string
	}{
		{"not found", 404, "404 Not Found"},
		{"server error", 503, "HTTP 503"},
		{"unauthorized", 401, "HTTP 401"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{pageFn: func(int) (Page, error) {
				return Page{Items: []Item{{ID: "42"}}, TotalPages: 1}, nil
			}}
			fetcher := &fakeFetcher{fetchFn: func(context.Context, string, int) (record.Record, error) {
				return record.Record{}, &transport.StatusError{StatusCode: tt.status}
			}}
			rec := &sleepRecorder{}
			c := newTestCollector(&memStore{}, rec, nil)

			res, err := c.RunPaged(context.Background(), src, fetcher, 5)
			if err != nil {
				t.Fatalf("RunPaged: %v", err)
			}
			if fetcher.calls["42"] != 1 {
				t.Errorf("attempts = %d, want 1", fetcher.calls["42"])
			}
			if len(res.Errors) != 1 || res.Errors[0].Message != tt.wantMsg {
				t.Errorf("errors = %v, want one %q", res.Errors, tt.wantMsg)
			}
			if len(rec.waits) != 1 {
				t.Errorf("waits = %v, want only the inter-request delay", rec.waits)
			}
		})
	}
}

func TestRunPaged_MalformedNotRetried(t *testing.T) {
	src := &fakeSource{pageFn: func(int) (Page, error) {
		return Page{Items: []Item{{ID: "1"}}, TotalPages: 1}, nil
	}}
	fetcher := &fakeFetcher{fetchFn: func(context.Context, string, int) (record.Record, error) {
		return record.Record{}, fmt.Errorf("decoding /movie/1: %w", transport.ErrMalformed)
	}}
	c := newTestCollector(&memStore{}, &sleepRecorder{}, nil)

	res, err := c.RunPaged(context.Background(), src, fetcher, 5)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if fetcher.calls["1"] != 1 || len(res.Errors) != 1 {
		t.Errorf("attempts = %d, errors = %v; want 1 attempt, 1 error", fetcher.calls["1"], res.Errors)
	}
}

func TestRunPaged_PageFailureReturnsPartial(t *testing.T) {
	src := &fakeSource{pageFn: func(page int) (Page, error) {
		if page == 2 {
			return Page{}, &transport.StatusError{StatusCode: 500}
		}
		return pagesOf(10, 3)(page)
	}}
	store := &memStore{}
	c := newTestCollector(store, &sleepRecorder{}, nil)

	res, err := c.RunPaged(context.Background(), src, &fakeFetcher{}, 100)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if res.PageErr == nil {
		t.Fatal("PageErr = nil, want page 2 failure")
	}
	if len(res.Records) != 3 {
		t.Errorf("got %d records, want 3 from page 1", len(res.Records))
	}
	if store.snap == nil || len(store.snap.Records) != 3 {
		t.Error("final checkpoint not written with partial records")
	}
}

func TestRunPaged_MergesListingFields(t *testing.T) {
	src := &fakeSource{pageFn: func(int) (Page, error) {
		return Page{Items: []Item{{
			ID:    "5",
			Extra: []record.Field{{Key: "discover_popularity", Value: 12.5}},
		}}, TotalPages: 1}, nil
	}}
	c := newTestCollector(nil, &sleepRecorder{}, nil)

	res, err := c.RunPaged(context.Background(), src, &fakeFetcher{}, 1)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if v, ok := res.Records[0].Get("discover_popularity"); !ok || v != 12.5 {
		t.Errorf("discover_popularity = %v, %v", v, ok)
	}
}

func TestRunPaged_ResumeSkipsProcessed(t *testing.T) {
	store := &memStore{snap: &checkpoint.State{
		Records: []record.Record{movie("1"), movie("2")},
		Errors:  []checkpoint.ErrorEntry{{ID: "3", Message: "404 Not Found"}},
	}}
	src := &fakeSource{pageFn: func(int) (Page, error) {
		return Page{Items: []Item{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}}, TotalPages: 1}, nil
	}}
	fetcher := &fakeFetcher{}
	c := newTestCollector(store, &sleepRecorder{}, func(cfg *Config) { cfg.Resume = true })

	res, err := c.RunPaged(context.Background(), src, fetcher, 10)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if fetcher.calls[id] != 0 {
			t.Errorf("id %s fetched %d times after resume, want 0", id, fetcher.calls[id])
		}
	}
	if got := strings.Join(ids(res.Records), ","); got != "1,2,4,5" {
		t.Errorf("records = %s, want 1,2,4,5", got)
	}
	if res.Resumed != 2 || res.Skipped != 3 || res.Fetched != 2 {
		t.Errorf("Resumed/Skipped/Fetched = %d/%d/%d, want 2/3/2", res.Resumed, res.Skipped, res.Fetched)
	}
	if len(res.Errors) != 1 {
		t.Errorf("errors = %v, want the loaded entry", res.Errors)
	}
}

func TestRunPaged_ResumeRetryFailed(t *testing.T) {
	store := &memStore{snap: &checkpoint.State{
		Records: []record.Record{movie("1")},
		Errors:  []checkpoint.ErrorEntry{{ID: "2", Message: "HTTP 502"}},
	}}
	src := &fakeSource{pageFn: func(int) (Page, error) {
		return Page{Items: []Item{{ID: "1"}, {ID: "2"}}, TotalPages: 1}, nil
	}}
	fetcher := &fakeFetcher{}
	c := newTestCollector(store, &sleepRecorder{}, func(cfg *Config) {
		cfg.Resume = true
		cfg.RetryFailed = true
	})

	res, err := c.RunPaged(context.Background(), src, fetcher, 10)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if fetcher.calls["2"] != 1 || fetcher.calls["1"] != 0 {
		t.Errorf("calls = %v, want only id 2 fetched", fetcher.calls)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v, want none after successful retry", res.Errors)
	}
	if got := strings.Join(ids(res.Records), ","); got != "1,2" {
		t.Errorf("records = %s, want 1,2", got)
	}
}

func TestRunPaged_ResumedRecordsCountTowardTarget(t *testing.T) {
	store := &memStore{snap: &checkpoint.State{
		Records: []record.Record{movie("1"), movie("2"), movie("3"), movie("4")},
	}}
	src := &fakeSource{pageFn: pagesOf(5, 5)}
	c := newTestCollector(store, &sleepRecorder{}, func(cfg *Config) { cfg.Resume = true })

	res, err := c.RunPaged(context.Background(), src, &fakeFetcher{}, 3)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	if len(res.Records) != 3 {
		t.Errorf("got %d records, want truncation to 3", len(res.Records))
	}
	if len(src.calls) != 0 {
		t.Errorf("page requests = %v, want none", src.calls)
	}
	if len(store.snap.Records) != 4 {
		t.Errorf("final checkpoint has %d records, want all 4", len(store.snap.Records))
	}
}

func TestRunPaged_PeriodicCheckpoints(t *testing.T) {
	store := &memStore{}
	src := &fakeSource{pageFn: pagesOf(1, 5)}
	c := newTestCollector(store, &sleepRecorder{}, func(cfg *Config) { cfg.CheckpointEvery = 2 })

	if _, err := c.RunPaged(context.Background(), src, &fakeFetcher{}, 10); err != nil {
		t.Fatalf("RunPaged: %v", err)
	}
	// Two periodic saves (after items 2 and 4) plus the final one.
	if store.saves != 3 {
		t.Errorf("saves = %d, want 3", store.saves)
	}
	if len(store.snap.Records) != 5 {
		t.Errorf("final snapshot has %d records, want 5", len(store.snap.Records))
	}
}

func TestRunPaged_CheckpointFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	src := &fakeSource{pageFn: pagesOf(1, 4)}
	c := newTestCollector(store, &sleepRecorder{}, func(cfg *Config) { cfg.CheckpointEvery = 1 })

	res, err := c.RunPaged(context.Background(), src, &fakeFetcher{}, 10)
	if err == nil || !strings.Contains(err.Error(), "final checkpoint") {
		t.Fatalf("err = %v, want final checkpoint failure", err)
	}
	if len(res.Records) != 4 {
		t.Errorf("got %d records, want 4 despite failed periodic saves", len(res.Records))
	}
	if store.saves != 5 {
		t.Errorf("saves = %d, want 4 periodic attempts + 1 final", store.saves)
	}
}

func TestRunPaged_CheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := checkpoint.NewFileStore(dir, "tmdb")
	src := &fakeSource{pageFn: pagesOf(1, 4)}
	fetcher := &fakeFetcher{fetchFn: func(_ context.Context, id string, _ int) (record.Record, error) {
		if id == "102" {
			return record.Record{}, &transport.StatusError{StatusCode: 404}
		}
		return movie(id), nil
	}}
	c := newTestCollector(store, &sleepRecorder{}, nil)

	first, err := c.RunPaged(context.Background(), src, fetcher, 10)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, _ := StateFromCheckpoint(snap, "id", false)

	want := map[string]bool{}
	for _, id := range ids(first.Records) {
		want[id] = true
	}
	for _, e := range first.Errors {
		want[e.ID] = true
	}
	got := st.ProcessedIDs()
	if len(got) != len(want) {
		t.Fatalf("processed = %v, want %v", got, want)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected processed id %s", id)
		}
	}
}

func TestRunPaged_OneOutcomePerID(t *testing.T) {
	src := &fakeSource{pageFn: func(page int) (Page, error) {
		// Page 2 repeats an id from page 1, as TMDB listings can shift.
		items := []Item{{ID: "1"}, {ID: "2"}, {ID: "3"}}
		if page == 2 {
			items = []Item{{ID: "3"}, {ID: "4"}, {ID: "5"}}
		}
		return Page{Items: items, TotalPages: 2}, nil
	}}
	fetcher := &fakeFetcher{fetchFn: func(_ context.Context, id string, _ int) (record.Record, error) {
		switch id {
		case "2":
			return record.Record{}, &transport.StatusError{StatusCode: 404}
		case "4":
			return record.Record{}, transientErr()
		}
		return movie(id), nil
	}}
	c := newTestCollector(&memStore{}, &sleepRecorder{}, nil)

	res, err := c.RunPaged(context.Background(), src, fetcher, 100)
	if err != nil {
		t.Fatalf("RunPaged: %v", err)
	}

	outcomes := map[string]int{}
	for _, id := range ids(res.Records) {
		outcomes[id]++
	}
	for _, e := range res.Errors {
		outcomes[e.ID]++
	}
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		if outcomes[id] != 1 {
			t.Errorf("id %s has %d outcomes, want 1", id, outcomes[id])
		}
	}
	if fetcher.calls["3"] != 1 {
		t.Errorf("id 3 fetched %d times, want 1", fetcher.calls["3"])
	}
}

func TestRunPaged_CancelRecordsNothingForInFlightItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{pageFn: pagesOf(1, 3)}
	fetcher := &fakeFetcher{fetchFn: func(ctx context.Context, id string, _ int) (record.Record, error) {
		if id == "101" {
			cancel()
			return record.Record{}, &transport.Error{URL: "x", Err: ctx.Err()}
		}
		return movie(id), nil
	}}
	store := &memStore{}
	c := newTestCollector(store, &sleepRecorder{}, nil)

	res, err := c.RunPaged(ctx, src, fetcher, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := ids(res.Records); len(got) != 1 || got[0] != "100" {
		t.Errorf("records = %v, want [100]", got)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v, want none for cancelled item", res.Errors)
	}
	if store.snap == nil || len(store.snap.Records) != 1 {
		t.Error("final checkpoint not written after cancellation")
	}
}

func TestRunPaged_InvalidTarget(t *testing.T) {
	c := newTestCollector(nil, &sleepRecorder{}, nil)
	if _, err := c.RunPaged(context.Background(), &fakeSource{}, &fakeFetcher{}, 0); err == nil {
		t.Fatal("expected error for zero target")
	}
}

func TestRunIDs_ResumeAndCheckpoint(t *testing.T) {
	store := &memStore{snap: &checkpoint.State{Records: []record.Record{movie("10")}}}
	fetcher := &fakeFetcher{}
	c := newTestCollector(store, &sleepRecorder{}, func(cfg *Config) {
		cfg.Resume = true
		cfg.CheckpointEvery = 2
	})

	res, err := c.RunIDs(context.Background(), []string{"10", "11", "12", "12"}, fetcher, 0)
	if err != nil {
		t.Fatalf("RunIDs: %v", err)
	}
	if fetcher.calls["10"] != 0 || fetcher.calls["12"] != 1 {
		t.Errorf("calls = %v, want 10 skipped and 12 fetched once", fetcher.calls)
	}
	if got := strings.Join(ids(res.Records), ","); got != "10,11,12" {
		t.Errorf("records = %s, want 10,11,12", got)
	}
	if store.saves != 2 {
		t.Errorf("saves = %d, want 1 periodic + 1 final", store.saves)
	}
}
