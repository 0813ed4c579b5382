package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"climate-server/internal/config"
	"climate-server/internal/db"
	"climate-server/internal/logging"
)

const appName = "climatectl"

var version = "dev"

var (
	dbPath   string
	dbDriver string
	logSQL   bool
)

var rootCmd = &cobra.Command{
	Use:   "climatectl",
	Short: "Manage the climate database",
	Long: `climatectl bootstraps the climate schema, loads the station and
measurement CSV files and prints a summary of the stored dataset.

Settings come from the same environment variables and config.yaml as the
server; flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(cfg, version, appName))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (default from SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "SQLite driver: sqlite3 (cgo) or sqlite (pure Go)")
	rootCmd.PersistentFlags().BoolVar(&logSQL, "log-sql", false, "log every SQL statement at debug level")
}

// loadConfig layers the command line flags over the environment config.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Path = dbPath
		cfg.DSN = ""
	}
	if flags.Changed("driver") {
		switch dbDriver {
		case db.DriverMattn, db.DriverModernc:
			cfg.Driver = dbDriver
		default:
			return config.Config{}, fmt.Errorf("invalid --driver %q (allowed: %s, %s)", dbDriver, db.DriverMattn, db.DriverModernc)
		}
	}
	if flags.Changed("log-sql") {
		cfg.LogSQL = logSQL
	}
	return cfg, nil
}

// openDB opens the configured database for writing.
func openDB(ctx context.Context, cmd *cobra.Command) (*sql.DB, error) {
	return openWith(ctx, cmd, db.Open)
}

// openDBReadOnly opens an existing database without modifying it.
func openDBReadOnly(ctx context.Context, cmd *cobra.Command) (*sql.DB, error) {
	return openWith(ctx, cmd, db.OpenReadOnly)
}

func openWith(
	ctx context.Context,
	cmd *cobra.Command,
	open func(context.Context, config.Config, *slog.Logger) (*sql.DB, error),
) (*sql.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	conn, err := open(ctx, cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return conn, nil
}
