package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// Config configures a Collector.
type Config struct {
	// Store receives periodic and final snapshots. Nil disables persistence.
	Store checkpoint.Store
	// IDKey names the record field that holds the item id, used on resume.
	IDKey string

	// Retry governs detail fetches. Zero fields take DefaultRetryPolicy values.
	Retry RetryPolicy
	// Delay is slept after every attempted item.
	Delay time.Duration
	// CheckpointEvery saves a snapshot after this many attempted items.
	// Zero disables periodic snapshots; the final snapshot is always written.
	CheckpointEvery int

	// Resume loads the store's snapshot before the run.
	Resume bool
	// RetryFailed re-attempts ids whose loaded outcome was an error.
	RetryFailed bool

	// Sleep replaces the blocking wait used for backoff and delay (tests).
	Sleep SleepFunc
	Logger *slog.Logger
}

// Collector runs one collection at a time. It is not safe for concurrent use.
type Collector struct {
	cfg    Config
	sleep  SleepFunc
	logger *slog.Logger
}

// New creates a Collector.
func New(cfg Config) *Collector {
	cfg.Retry = cfg.Retry.normalized()
	if cfg.CheckpointEvery < 0 {
		cfg.CheckpointEvery = 0
	}
	c := &Collector{cfg: cfg, sleep: cfg.Sleep, logger: cfg.Logger}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// run carries the bookkeeping of one invocation.
type run struct {
	st        *State
	res       Result
	sinceSave int
}

// RunPaged collects up to target detail records by walking src page by
// page, starting at page 1.
//
// A page fetch failure ends the walk and is reported in Result.PageErr with
// a nil error. The returned error is non-nil only when ctx is cancelled or
// the final snapshot cannot be written; Result is populated in both cases.
func (c *Collector) RunPaged(ctx context.Context, src PageSource, fetcher DetailFetcher, target int) (Result, error) {
	if target <= 0 {
		return Result{}, fmt.Errorf("target must be positive, got %d", target)
	}
	r, err := c.start(ctx)
	if err != nil {
		return Result{}, err
	}

	var runErr error
	cur := Cursor{Page: 1}
	for r.st.Collected() < target && !cur.Exhausted() {
		c.logger.Info("requesting listing page", "page", cur.Page)
		page, err := src.FetchPage(ctx, cur.Page)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			r.res.PageErr = fmt.Errorf("fetching page %d: %w", cur.Page, err)
			c.logger.Warn("listing page failed, stopping", "page", cur.Page, "error", err)
			break
		}
		r.res.Pages++
		cur.Observe(page.TotalPages)

		if len(page.Items) == 0 {
			c.logger.Info("listing page empty, stopping", "page", cur.Page)
			break
		}
		if err := c.processItems(ctx, r, page.Items, fetcher, target); err != nil {
			runErr = err
			break
		}
		cur.Page++
	}

	return c.finish(ctx, r, target, runErr)
}

// RunIDs fetches the detail record for each id in order through the same
// retry, delay, and checkpoint stages as RunPaged. target <= 0 means the
// whole list.
func (c *Collector) RunIDs(ctx context.Context, ids []string, fetcher DetailFetcher, target int) (Result, error) {
	if target <= 0 {
		target = len(ids)
	}
	r, err := c.start(ctx)
	if err != nil {
		return Result{}, err
	}

	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{ID: id}
	}
	runErr := c.processItems(ctx, r, items, fetcher, target)

	return c.finish(ctx, r, target, runErr)
}

// start builds the initial state, loading the snapshot when resuming.
func (c *Collector) start(ctx context.Context) (*run, error) {
	r := &run{st: NewState()}
	if !c.cfg.Resume || c.cfg.Store == nil {
		return r, nil
	}

	snap, err := c.cfg.Store.Load(ctx)
	if errors.Is(err, checkpoint.ErrNoCheckpoint) {
		c.logger.Info("no checkpoint found, starting fresh")
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	st, missing := StateFromCheckpoint(snap, c.cfg.IDKey, c.cfg.RetryFailed)
	if missing > 0 {
		c.logger.Warn("checkpoint records without id", "key", c.cfg.IDKey, "count", missing)
	}
	r.st = st
	r.res.Resumed = st.Collected()
	c.logger.Info("resuming from checkpoint", "records", st.Collected(), "errors", len(st.errors))
	return r, nil
}

// processItems runs the detail stage over items until target records are
// held. It returns only context errors.
func (c *Collector) processItems(ctx context.Context, r *run, items []Item, fetcher DetailFetcher, target int) error {
	for _, item := range items {
		if r.st.Collected() >= target {
			return nil
		}
		if r.st.Processed(item.ID) {
			r.res.Skipped++
			c.logger.Debug("skipping processed item", "id", item.ID)
			continue
		}

		if err := c.fetchOne(ctx, r.st, item, fetcher); err != nil {
			return err
		}
		r.res.Fetched++

		if err := c.sleep(ctx, c.cfg.Delay); err != nil {
			return err
		}

		r.sinceSave++
		if c.cfg.CheckpointEvery > 0 && r.sinceSave >= c.cfg.CheckpointEvery {
			c.checkpoint(ctx, r)
		}
	}
	return nil
}

// fetchOne records exactly one terminal outcome for item, unless ctx is
// cancelled first, in which case nothing is recorded.
func (c *Collector) fetchOne(ctx context.Context, st *State, item Item, fetcher DetailFetcher) error {
	fetch := func(ctx context.Context) (record.Record, error) {
		return fetcher.FetchDetail(ctx, item.ID)
	}
	rec, attempts, err := Retry(ctx, c.cfg.Retry, c.retrySleep(item.ID), fetch)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		c.logger.Warn("item failed", "id", item.ID, "attempts", attempts, "error", err)
		st.Fail(item.ID, err.Error())
		return nil
	}
	for _, f := range item.Extra {
		rec.Set(f.Key, f.Value)
	}
	st.Add(item.ID, rec)
	c.logger.Debug("item collected", "id", item.ID, "attempts", attempts, "collected", st.Collected())
	return nil
}

// retrySleep wraps the configured sleep to log each backoff.
func (c *Collector) retrySleep(id string) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		c.logger.Info("retrying after transport error", "id", id, "backoff", d)
		return c.sleep(ctx, d)
	}
}

// checkpoint writes a periodic snapshot. A failed write is logged and the
// run continues; the counter is kept so the next item tries again.
func (c *Collector) checkpoint(ctx context.Context, r *run) {
	if c.cfg.Store == nil {
		r.sinceSave = 0
		return
	}
	if err := c.cfg.Store.Save(ctx, r.st.Snapshot()); err != nil {
		c.logger.Warn("checkpoint failed", "error", err)
		return
	}
	r.sinceSave = 0
	c.logger.Info("checkpoint saved", "records", r.st.Collected(), "errors", len(r.st.errors))
}

// finish writes the final snapshot and builds the result. The snapshot is
// written even when ctx is cancelled so no recorded outcome is lost.
func (c *Collector) finish(ctx context.Context, r *run, target int, runErr error) (Result, error) {
	snap := r.st.Snapshot()

	recs := snap.Records
	if len(recs) > target {
		recs = recs[:target]
	}
	r.res.Records = recs
	r.res.Errors = snap.Errors

	if c.cfg.Store != nil {
		if err := c.cfg.Store.Save(context.WithoutCancel(ctx), snap); err != nil {
			return r.res, errors.Join(runErr, fmt.Errorf("saving final checkpoint: %w", err))
		}
		c.logger.Info("final checkpoint saved", "records", len(snap.Records), "errors", len(snap.Errors))
	}
	return r.res, runErr
}
