package checkpoint

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/skrigel/cinema-by-the-numbers/internal/record"
)

var errorsHeader = []string{"id", "error"}

const (
	recordsSuffix = "_results.csv"
	errorsSuffix  = "_failed.csv"
)

// FileStore keeps a snapshot as two CSV files: one row per record with the
// union of all keys as header, and an id,error log.
type FileStore struct {
	RecordsPath string
	ErrorsPath  string
}

// NewFileStore returns a FileStore writing <name>_results.csv and
// <name>_failed.csv under dir.
func NewFileStore(dir, name string) *FileStore {
	return &FileStore{
		RecordsPath: filepath.Join(dir, name+recordsSuffix),
		ErrorsPath:  filepath.Join(dir, name+errorsSuffix),
	}
}

// FileDatasets returns the names of the datasets with a records file in
// dir, sorted. A missing dir has none.
func FileDatasets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordsSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), recordsSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads both files. A missing records file means no checkpoint; a
// missing errors file is an empty log. Cells load as strings, empty cells
// as nil.
func (f *FileStore) Load(_ context.Context) (State, error) {
	rows, err := readCSV(f.RecordsPath)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, ErrNoCheckpoint
	}
	if err != nil {
		return State{}, fmt.Errorf("reading records: %w", err)
	}

	var st State
	if len(rows) > 0 {
		header := rows[0]
		for _, row := range rows[1:] {
			var r record.Record
			for i, col := range header {
				var v any
				if i < len(row) && row[i] != "" {
					v = row[i]
				}
				r.Set(col, v)
			}
			st.Records = append(st.Records, r)
		}
	}

	errRows, err := readCSV(f.ErrorsPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return State{}, fmt.Errorf("reading errors: %w", err)
	}
	for i, row := range errRows {
		if i == 0 || len(row) == 0 {
			continue
		}
		e := ErrorEntry{ID: row[0]}
		if len(row) > 1 {
			e.Message = row[1]
		}
		st.Errors = append(st.Errors, e)
	}
	return st, nil
}

// Save writes both files, each through a temp file and rename so a crash
// mid-write leaves the previous snapshot intact.
func (f *FileStore) Save(_ context.Context, s State) error {
	cols := record.Columns(s.Records)
	err := writeCSV(f.RecordsPath, func(w *csv.Writer) error {
		if err := w.Write(cols); err != nil {
			return err
		}
		row := make([]string, len(cols))
		for _, r := range s.Records {
			for i, c := range cols {
				v, _ := r.Get(c)
				row[i] = record.FormatValue(v)
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing records: %w", err)
	}

	err = writeCSV(f.ErrorsPath, func(w *csv.Writer) error {
		if err := w.Write(errorsHeader); err != nil {
			return err
		}
		for _, e := range s.Errors {
			if err := w.Write([]string{e.ID, e.Message}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing errors: %w", err)
	}
	return nil
}

func readCSV(path string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeCSV(path string, fill func(w *csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := csv.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
