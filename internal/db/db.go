package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"

	"climate-server/internal/config"
)

const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// Open returns a read-write pooled handle on the climate database, creating
// the file if needed and switching it to WAL. Only migrations and the
// importer should use it. Every statement goes through the instrumented
// connector; SQL text is only logged when cfg.LogSQL is set.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	return open(ctx, cfg, logger, false)
}

// OpenReadOnly opens an existing database file in read-only, query-only
// mode. The file is never created and its journal mode is left alone.
func OpenReadOnly(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	return open(ctx, cfg, logger, true)
}

func open(ctx context.Context, cfg config.Config, logger *slog.Logger, readOnly bool) (*sql.DB, error) {
	drv, err := driverFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := buildDSN(cfg, readOnly)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.LogSQL {
		logger = slog.New(slog.DiscardHandler)
	}

	connector, err := NewLoggingConnector(drv, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("db connector: %w", err)
	}
	db := sql.OpenDB(connector)

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func driverFor(name string) (driver.Driver, error) {
	switch name {
	case DriverMattn, "":
		return &sqlite3.SQLiteDriver{}, nil
	case DriverModernc:
		return &sqlite.Driver{}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q (allowed: %s, %s)", name, DriverMattn, DriverModernc)
	}
}

// buildDSN turns cfg into a driver DSN. An explicit DSN is used verbatim.
func buildDSN(cfg config.Config, readOnly bool) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	if path == "" {
		return "", fmt.Errorf("db: neither DSN nor path configured")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if readOnly {
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("sqlite database %s: %w", path, err)
			}
		} else if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	params := pragmaParams(cfg.Driver)
	if readOnly {
		params = readOnlyParams(cfg.Driver)
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// pragmaParams returns foreign keys, busy timeout and WAL settings in the
// query syntax each driver understands.
func pragmaParams(driverName string) []string {
	if driverName == DriverModernc {
		return []string{
			"_pragma=foreign_keys(1)",
			"_pragma=busy_timeout(5000)",
			"_pragma=journal_mode(WAL)",
		}
	}
	return []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
}

// readOnlyParams opens the file with mode=ro and query_only set. No pragma
// that writes to the file header is included.
func readOnlyParams(driverName string) []string {
	if driverName == DriverModernc {
		return []string{
			"mode=ro",
			"_pragma=busy_timeout(5000)",
			"_pragma=query_only(1)",
		}
	}
	return []string{
		"mode=ro",
		"_busy_timeout=5000",
		"_query_only=1",
	}
}
