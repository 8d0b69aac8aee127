package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skrigel/cinema-by-the-numbers/internal/checkpoint"
	"github.com/skrigel/cinema-by-the-numbers/internal/collect"
	"github.com/skrigel/cinema-by-the-numbers/internal/config"
	"github.com/skrigel/cinema-by-the-numbers/internal/omdb"
	"github.com/skrigel/cinema-by-the-numbers/internal/storage"
	"github.com/skrigel/cinema-by-the-numbers/internal/tmdb"
)

// --- tmdb ---

var tmdbCmd = &cobra.Command{
	Use:   "tmdb",
	Short: "Collect movie details from The Movie Database",
}

func listingCmd(use, short, example string, l tmdb.Listing, dataset string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			rawParams, _ := cmd.Flags().GetStringArray("param")
			resume, _ := cmd.Flags().GetBool("resume")
			name, _ := cmd.Flags().GetString("dataset")

			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := a.tmdbClient()
			if err != nil {
				return err
			}
			store, where, err := a.store(name, tmdb.IDKey)
			if err != nil {
				return err
			}

			printStep("Collecting %d movies from %s", count, l)
			start := time.Now()
			res, err := a.collector(store, tmdb.IDKey, resume).
				RunPaged(cmd.Context(), tmdb.NewListingSource(client, l, params), tmdb.NewDetailFetcher(client), count)
			printSummary(res, where, time.Since(start))
			return collectErr(err)
		},
	}
	cmd.Flags().Int("count", 100, "number of movies to collect")
	cmd.Flags().StringArray("param", nil, "extra listing query parameter as key=value (repeatable)")
	cmd.Flags().Bool("resume", false, "continue from the dataset's checkpoint")
	cmd.Flags().String("dataset", dataset, "dataset name")
	return cmd
}

var tmdbDiscoverCmd = listingCmd(
	"discover",
	"Collect details for movies from /discover/movie",
	`  cinema tmdb discover --count 500 --param sort_by=revenue.desc --param primary_release_year=1999
  cinema tmdb discover --count 5000 --resume`,
	tmdb.ListingDiscover, "tmdb_discover",
)

var tmdbNowPlayingCmd = listingCmd(
	"now-playing",
	"Collect details for movies currently in theatres",
	`  cinema tmdb now-playing --count 200 --param region=US`,
	tmdb.ListingNowPlaying, "tmdb_now_playing",
)

var tmdbDetailsCmd = &cobra.Command{
	Use:   "details",
	Short: "Collect details for a list of TMDB ids",
	Example: `  cinema tmdb details --ids-file ids.txt
  cinema tmdb details --id 603 --id 604`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resume, _ := cmd.Flags().GetBool("resume")
		name, _ := cmd.Flags().GetString("dataset")
		ids, err := idsFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		client, err := a.tmdbClient()
		if err != nil {
			return err
		}
		store, where, err := a.store(name, tmdb.IDKey)
		if err != nil {
			return err
		}

		printStep("Collecting details for %d ids", len(ids))
		start := time.Now()
		res, err := a.collector(store, tmdb.IDKey, resume).
			RunIDs(cmd.Context(), ids, tmdb.NewDetailFetcher(client), 0)
		printSummary(res, where, time.Since(start))
		return collectErr(err)
	},
}

var tmdbGenresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List TMDB movie genres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		client, err := a.tmdbClient()
		if err != nil {
			return err
		}
		genres, err := client.Genres(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching genres: %w", err)
		}
		for _, g := range genres {
			fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s\n", g.ID, g.Name)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{tmdbDetailsCmd, omdbCmd} {
		c.Flags().String("ids-file", "", "file with one id per line")
		c.Flags().StringArray("id", nil, "id to fetch (repeatable)")
	}
	tmdbDetailsCmd.Flags().Bool("resume", false, "continue from the dataset's checkpoint")
	tmdbDetailsCmd.Flags().String("dataset", "tmdb_details", "dataset name")

	tmdbCmd.AddCommand(tmdbDiscoverCmd, tmdbNowPlayingCmd, tmdbDetailsCmd, tmdbGenresCmd)
}

// --- omdb ---

const maxListedFailures = 10

var omdbCmd = &cobra.Command{
	Use:   "omdb",
	Short: "Look up titles on OMDb by IMDb id",
	Long: `Look up titles on OMDb by IMDb id.

Each id is requested once; failures are reported and skipped.`,
	Example: `  cinema omdb --ids-file imdb_ids.txt --limit 100
  cinema omdb --id tt0133093`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		name, _ := cmd.Flags().GetString("dataset")
		ids, err := idsFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		client, err := a.omdbClient()
		if err != nil {
			return err
		}
		store, where, err := a.store(name, omdb.IDKey)
		if err != nil {
			return err
		}

		printStep("Looking up %d titles", len(ids))
		res, runErr := collect.Lookup(cmd.Context(), client, ids, limit, a.logger)

		st := checkpoint.State{Records: res.Records, Errors: res.Failed}
		if err := store.Save(context.WithoutCancel(cmd.Context()), st); err != nil {
			return fmt.Errorf("saving dataset: %w", err)
		}

		printSuccess("Collected %d titles", len(res.Records))
		if n := len(res.Failed); n > 0 {
			printWarning("%d ids failed", n)
			for i, e := range res.Failed {
				if i == maxListedFailures {
					printStatus("more", "%d not shown", n-i)
					break
				}
				printError("%s: %s", e.ID, e.Message)
			}
		}
		printStatus("dataset", "%s", where)
		return collectErr(runErr)
	},
}

func init() {
	omdbCmd.Flags().Int("limit", 0, "stop after this many titles (0 = all)")
	omdbCmd.Flags().String("dataset", "omdb", "dataset name")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collected datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("dataset")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		printStatus("data dir", "%s", a.cfg.Storage.DataDir)
		printStatus("backend", "%s", a.cfg.Storage.Backend)

		if a.cfg.Storage.Backend == config.BackendSQLite {
			return sqliteStatus(cmd, a, name)
		}
		return fileStatus(cmd, a, name)
	},
}

func init() {
	statusCmd.Flags().String("dataset", "", "show the checkpoint history of one dataset")
}

func sqliteStatus(cmd *cobra.Command, a *app, name string) error {
	ctx := cmd.Context()
	db, err := a.database()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if name != "" {
		cps, err := db.Checkpoints(ctx, name, 20)
		if err != nil {
			return fmt.Errorf("reading checkpoints: %w", err)
		}
		if len(cps) == 0 {
			return fmt.Errorf("dataset %q: %w", name, storage.ErrNotFound)
		}
		for _, c := range cps {
			fmt.Fprintf(out, "%s  %s  %6d records  %4d errors\n",
				c.SavedAt.Local().Format(time.DateTime), c.ID, c.Records, c.Errors)
		}
		return nil
	}

	names, err := db.Datasets(ctx)
	if err != nil {
		return fmt.Errorf("listing datasets: %w", err)
	}
	if len(names) == 0 {
		printWarning("No datasets yet")
		return nil
	}
	for _, n := range names {
		last, err := db.LastCheckpoint(ctx, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-20s %6d records  %4d errors  saved %s\n",
			n, last.Records, last.Errors, last.SavedAt.Local().Format(time.DateTime))
	}
	return nil
}

func fileStatus(cmd *cobra.Command, a *app, name string) error {
	names := []string{name}
	if name == "" {
		var err error
		if names, err = checkpoint.FileDatasets(a.cfg.Storage.DataDir); err != nil {
			return fmt.Errorf("listing datasets: %w", err)
		}
		if len(names) == 0 {
			printWarning("No datasets yet")
			return nil
		}
	}

	out := cmd.OutOrStdout()
	for _, n := range names {
		st, err := checkpoint.NewFileStore(a.cfg.Storage.DataDir, n).Load(cmd.Context())
		if errors.Is(err, checkpoint.ErrNoCheckpoint) {
			return fmt.Errorf("dataset %q: %w", n, err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-20s %6d records  %4d errors\n", n, len(st.Records), len(st.Errors))
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store an API credential in the platform secret store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configSetSecretCmd)
}

// --- helpers ---

func printSummary(res collect.Result, where string, took time.Duration) {
	printSuccess("Collected %d records in %s", len(res.Records), took.Round(time.Second))
	printStatus("fetched", "%d", res.Fetched)
	if res.Resumed > 0 || res.Skipped > 0 {
		printStatus("resumed", "%d records, %d ids skipped", res.Resumed, res.Skipped)
	}
	if res.Pages > 0 {
		printStatus("pages", "%d", res.Pages)
	}
	if len(res.Errors) > 0 {
		printStatus("errors", "%d", len(res.Errors))
	}
	if res.PageErr != nil {
		printWarning("Listing stopped early: %v", res.PageErr)
	}
	printStatus("dataset", "%s", where)
}

// collectErr turns a bare cancellation into a short message; the collector
// has saved its final checkpoint by then. A cancellation joined with a
// failed save is returned as is.
func collectErr(err error) error {
	if err == context.Canceled {
		printWarning("Interrupted, progress saved")
		return nil
	}
	return err
}
