// Package checkpoint persists snapshots of a collection run: the flat
// records gathered so far and the log of ids that failed.
package checkpoint

import (
	"context"
	"errors"

	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// ErrNoCheckpoint is returned by Load when nothing has been saved yet.
var ErrNoCheckpoint = errors.New("no checkpoint")

// ErrorEntry records an item that reached a terminal failure.
type ErrorEntry struct {
	ID      string
	Message string
}

// State is a snapshot of collected records and failures, in fetch order.
type State struct {
	Records []record.Record
	Errors  []ErrorEntry
}

// Store reads and writes snapshots. Save replaces the previous snapshot.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}
