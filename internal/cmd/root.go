// Package cmd implements the habitd command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/engine"
	"github.com/runger/habitd/internal/logging"
	"github.com/runger/habitd/internal/store"
)

var (
	flagConfig string
	flagDB     string
	flagJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "habitd",
	Short: "local behavioral pattern detection and suggestions",
	Long: `habitd - learn habits from what you actually do
  - record app, command, and conversation events
  - detect sequential, time-of-day, and frequency patterns
  - get ranked, context-aware suggestions and teach it with feedback`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.habitd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default ~/.habitd/habitd.db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
}

// openEngine loads configuration, opens the database, and assembles
// the engine. The returned closer must be deferred by the caller.
func openEngine(ctx context.Context) (*engine.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewFromEnv()

	dbPath := flagDB
	if dbPath == "" {
		dbPath = cfg.Daemon.DatabasePath
	}
	if dbPath == "" {
		dbPath, err = store.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
	}

	db, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closer := func() {
		if err := db.Close(); err != nil {
			logger.Warn("database close failed", "error", err)
		}
	}
	return engine.New(db, *cfg, logger), closer, nil
}

func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
