package collect

import (
	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// State is the working set of one run. Every id in processed has exactly
// one terminal outcome: a record or an error entry.
type State struct {
	records   []record.Record
	errors    []checkpoint.ErrorEntry
	processed map[string]bool
}

// NewState returns an empty state.
func NewState() *State {
	return &State{processed: make(map[string]bool)}
}

// StateFromCheckpoint rebuilds a state from a snapshot. The processed set
// is the ids of loaded records (read from idKey) plus the ids of loaded
// errors. With retryFailed the error log is dropped so those ids are
// fetched again. Records without an id are kept but do not mark anything
// processed; the count of such records is returned.
func StateFromCheckpoint(snap checkpoint.State, idKey string, retryFailed bool) (*State, int) {
	st := NewState()
	missing := 0
	for _, r := range snap.Records {
		id, ok := r.ID(idKey)
		if !ok {
			missing++
			st.records = append(st.records, r)
			continue
		}
		if st.processed[id] {
			continue
		}
		st.processed[id] = true
		st.records = append(st.records, r)
	}
	if retryFailed {
		return st, missing
	}
	for _, e := range snap.Errors {
		if st.processed[e.ID] {
			continue
		}
		st.processed[e.ID] = true
		st.errors = append(st.errors, e)
	}
	return st, missing
}

// Processed reports whether id already has a terminal outcome.
func (s *State) Processed(id string) bool {
	return s.processed[id]
}

// Add records a successful fetch.
func (s *State) Add(id string, r record.Record) {
	s.processed[id] = true
	s.records = append(s.records, r)
}

// Fail records a terminal failure.
func (s *State) Fail(id, msg string) {
	s.processed[id] = true
	s.errors = append(s.errors, checkpoint.ErrorEntry{ID: id, Message: msg})
}

// Collected returns the number of records held.
func (s *State) Collected() int {
	return len(s.records)
}

// ProcessedIDs returns the processed set as a slice, in no particular order.
func (s *State) ProcessedIDs() []string {
	ids := make([]string, 0, len(s.processed))
	for id := range s.processed {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the state for persisting. The slices are copied so later
// appends do not alias a snapshot held by a store.
func (s *State) Snapshot() checkpoint.State {
	recs := make([]record.Record, len(s.records))
	copy(recs, s.records)
	errs := make([]checkpoint.ErrorEntry, len(s.errors))
	copy(errs, s.errors)
	return checkpoint.State{Records: recs, Errors: errs}
}
