package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// RequireTables fails unless every named table exists.
func RequireTables(ctx context.Context, db *sql.DB, tables ...string) error {
	var missing []string
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, table)
			continue
		}
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("database is missing tables: %s", strings.Join(missing, ", "))
	}
	return nil
}
