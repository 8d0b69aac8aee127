package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested dataset or checkpoint does not exist.
var ErrNotFound = errors.New("not found")

// Checkpoint is one entry of a dataset's save history.
type Checkpoint struct {
	ID      string
	Dataset string
	Records int
	Errors  int
	SavedAt time.Time
}
