package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/collect"
	"github.com/skrigel/cinema-by-the-numbers/internal/config"
	"github.com/skrigel/cinema-by-the-numbers/internal/omdb"
	"github.com/skrigel/cinema-by-the-numbers/internal/storage"
	"github.com/skrigel/cinema-by-the-numbers/internal/tmdb"
	"github.com/skrigel/cinema-by-the-numbers/internal/transport"
)

// app holds what every collecting command needs, built from config and
// the global flags.
type app struct {
	cfg    config.Config
	http   *transport.Client
	logger *slog.Logger

	db *storage.Store // opened lazily for the sqlite backend
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("data-dir"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v, _ := flags.GetString("backend"); v != "" {
		cfg.Storage.Backend = v
	}
	if v, _ := flags.GetBool("retry-failed"); v {
		cfg.Collect.RetryFailed = true
	}
	if v, _ := flags.GetBool("verbose"); v {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return &app{
		cfg: cfg,
		http: transport.New(transport.Config{
			Timeout:   cfg.HTTP.Timeout,
			RateLimit: cfg.HTTP.RateLimit,
			UserAgent: "cinema-by-the-numbers/" + version,
		}),
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *app) tmdbClient() (*tmdb.Client, error) {
	if err := a.cfg.RequireTMDB(); err != nil {
		return nil, err
	}
	return tmdb.New(a.http, a.cfg.TMDB.BaseURL, a.cfg.TMDB.Token, a.cfg.TMDB.Language), nil
}

func (a *app) omdbClient() (*omdb.Client, error) {
	if err := a.cfg.RequireOMDB(); err != nil {
		return nil, err
	}
	return omdb.New(a.http, a.cfg.OMDB.BaseURL, a.cfg.OMDB.APIKey), nil
}

func (a *app) database() (*storage.Store, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.Open(a.cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a.db = db
	return db, nil
}

// store returns the checkpoint store for a dataset and a description of
// where it lives.
func (a *app) store(dataset, idKey string) (checkpoint.Store, string, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := a.database()
		if err != nil {
			return nil, "", err
		}
		where := fmt.Sprintf("%s (sqlite dataset %q)", filepath.Join(a.cfg.Storage.DataDir, storage.DBFile), dataset)
		return db.Dataset(dataset, idKey), where, nil
	default:
		fs := checkpoint.NewFileStore(a.cfg.Storage.DataDir, dataset)
		return fs, fs.RecordsPath, nil
	}
}

func (a *app) collector(store checkpoint.Store, idKey string, resume bool) *collect.Collector {
	return collect.New(collect.Config{
		Store: store,
		IDKey: idKey,
		Retry: collect.RetryPolicy{
			MaxAttempts: a.cfg.Collect.MaxAttempts,
			Backoff:     collect.Exponential(a.cfg.Collect.BackoffBase),
		},
		Delay:           a.cfg.Collect.Delay,
		CheckpointEvery: a.cfg.Collect.CheckpointEvery,
		Resume:          resume,
		RetryFailed:     a.cfg.Collect.RetryFailed,
		Logger:          a.logger,
	})
}
