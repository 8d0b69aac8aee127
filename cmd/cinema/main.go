package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "cinema",
	Short: "Collect movie metadata from TMDB and OMDb into flat datasets",
	Long: `Collect movie metadata from TMDB and OMDb into flat datasets.

Datasets are written to the data directory as CSV files or into a SQLite
database, and long runs checkpoint so they can be resumed.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("no-color"); v || os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "log every request (debug level)")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("data-dir", "", "directory for datasets (default from storage.data_dir)")
	pf.String("backend", "", "dataset store: csv or sqlite (default from storage.backend)")
	pf.Bool("retry-failed", false, "on resume, fetch ids that failed in the checkpoint again")

	rootCmd.AddCommand(tmdbCmd, omdbCmd, statusCmd, configCmd)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
