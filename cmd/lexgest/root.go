package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/lexgest/internal/app"
	"github.com/dgallion1/lexgest/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lexgest",
	Short: "Structure, index and query statutes",
	Long: `lexgest extracts the chapter, section and article hierarchy of legal texts,
splits articles into overlapping chunks, indexes them for semantic search and
answers questions grounded on the retrieved articles.

Configuration comes from the environment, an optional .env file and the YAML
file named by LEXGEST_CONFIG.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads configuration and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// buildApp wires the components a command needs. The caller closes the app.
func buildApp(ctx context.Context, needs app.Needs) (*app.App, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := newLogger()
	a, err := app.Build(ctx, cfg, needs, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
