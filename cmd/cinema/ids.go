package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// idsFromFlags collects ids from --ids-file followed by --id.
func idsFromFlags(cmd *cobra.Command) ([]string, error) {
	path, _ := cmd.Flags().GetString("ids-file")
	extra, _ := cmd.Flags().GetStringArray("id")
	if path == "" && len(extra) == 0 {
		return nil, errors.New("one of --ids-file or --id is required")
	}

	var ids []string
	if path != "" {
		fromFile, err := readIDs(path)
		if err != nil {
			return nil, err
		}
		ids = fromFile
	}
	for _, id := range extra {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("no ids given")
	}
	return ids, nil
}

// readIDs reads one id per line. Blank lines and lines starting with # are
// skipped.
func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ids file: %w", err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ids file: %w", err)
	}
	return ids, nil
}

// parseParams turns repeated key=value flags into query parameters.
func parseParams(raw []string) (url.Values, error) {
	params := url.Values{}
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", kv)
		}
		params.Add(k, v)
	}
	return params, nil
}
