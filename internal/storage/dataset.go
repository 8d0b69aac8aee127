package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

// savedAtLayout is fixed width so saved_at sorts lexically.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Dataset is a named checkpoint store inside the database. It implements
// checkpoint.Store.
type Dataset struct {
	store *Store
	name  string
	idKey string
}

var _ checkpoint.Store = (*Dataset)(nil)

// Dataset returns the checkpoint store for name. idKey names the record
// field copied to the item_id column.
func (s *Store) Dataset(name, idKey string) *Dataset {
	return &Dataset{store: s, name: name, idKey: idKey}
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// Save replaces the dataset's records and errors with st and appends a
// history entry, in one transaction.
func (d *Dataset) Save(ctx context.Context, st checkpoint.State) error {
	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning checkpoint transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE dataset = ?", d.name); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM errors WHERE dataset = ?", d.name); err != nil {
		return fmt.Errorf("clearing errors: %w", err)
	}

	for i, r := range st.Records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		var itemID sql.NullString
		if id, ok := r.ID(d.idKey); ok {
			itemID = sql.NullString{String: id, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO records (dataset, seq, item_id, fields_json) VALUES (?, ?, ?, ?)",
			d.name, i, itemID, string(data),
		); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	for i, e := range st.Errors {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO errors (dataset, seq, item_id, message) VALUES (?, ?, ?, ?)",
			d.name, i, e.ID, e.Message,
		); err != nil {
			return fmt.Errorf("inserting error %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO checkpoints (id, dataset, records, errors, saved_at) VALUES (?, ?, ?, ?, ?)",
		uuid.New().String(), d.name, len(st.Records), len(st.Errors),
		time.Now().UTC().Format(savedAtLayout),
	); err != nil {
		return fmt.Errorf("recording checkpoint: %w", err)
	}

	return tx.Commit()
}

// Load returns the last saved state, or checkpoint.ErrNoCheckpoint if the
// dataset was never saved.
func (d *Dataset) Load(ctx context.Context) (checkpoint.State, error) {
	var saves int
	if err := d.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM checkpoints WHERE dataset = ?", d.name,
	).Scan(&saves); err != nil {
		return checkpoint.State{}, fmt.Errorf("counting checkpoints: %w", err)
	}
	if saves == 0 {
		return checkpoint.State{}, checkpoint.ErrNoCheckpoint
	}

	var st checkpoint.State
	rows, err := d.store.db.QueryContext(ctx,
		"SELECT fields_json FROM records WHERE dataset = ? ORDER BY seq ASC", d.name)
	if err != nil {
		return checkpoint.State{}, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return checkpoint.State{}, err
		}
		var r record.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return checkpoint.State{}, fmt.Errorf("decoding record %d: %w", len(st.Records), err)
		}
		st.Records = append(st.Records, r)
	}
	if err := rows.Err(); err != nil {
		return checkpoint.State{}, err
	}
	rows.Close()

	erows, err := d.store.db.QueryContext(ctx,
		"SELECT item_id, message FROM errors WHERE dataset = ? ORDER BY seq ASC", d.name)
	if err != nil {
		return checkpoint.State{}, fmt.Errorf("querying errors: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		var e checkpoint.ErrorEntry
		if err := erows.Scan(&e.ID, &e.Message); err != nil {
			return checkpoint.State{}, err
		}
		st.Errors = append(st.Errors, e)
	}
	return st, erows.Err()
}

// Datasets returns the names of all saved datasets in alphabetical order.
func (s *Store) Datasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT dataset FROM checkpoints ORDER BY dataset ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Checkpoints returns the save history of dataset, newest first, at most
// limit entries (limit <= 0 means all).
func (s *Store) Checkpoints(ctx context.Context, dataset string, limit int) ([]Checkpoint, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset, records, errors, saved_at
		FROM checkpoints WHERE dataset = ?
		ORDER BY saved_at DESC, rowid DESC LIMIT ?`, dataset, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var c Checkpoint
		var savedAt string
		if err := rows.Scan(&c.ID, &c.Dataset, &c.Records, &c.Errors, &savedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(savedAtLayout, savedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing saved_at: %w", err)
		}
		c.SavedAt = t
		out = append(out, c)
	}
	return out, rows.Err()
}

// LastCheckpoint returns the newest history entry of dataset, or
// ErrNotFound.
func (s *Store) LastCheckpoint(ctx context.Context, dataset string) (Checkpoint, error) {
	cps, err := s.Checkpoints(ctx, dataset, 1)
	if err != nil {
		return Checkpoint{}, err
	}
	if len(cps) == 0 {
		return Checkpoint{}, ErrNotFound
	}
	return cps[0], nil
}
