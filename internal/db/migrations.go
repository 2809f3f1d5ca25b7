package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migrations is an ordered list of SQL statements to run.
// Every statement must be safe to run again on an existing database.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS visits (
		seq               INTEGER PRIMARY KEY AUTOINCREMENT,
		id                TEXT    NOT NULL UNIQUE,
		customer_id       TEXT    NOT NULL DEFAULT '',
		customer_name     TEXT    NOT NULL,
		visit_type        TEXT    NOT NULL CHECK (visit_type IN ('Ask', 'Service', 'Sales')),
		service           TEXT    NOT NULL DEFAULT '',
		arrived_at        TEXT    NOT NULL,
		expected_leave_at TEXT,
		left_at           TEXT,
		notes             TEXT    NOT NULL DEFAULT '',
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_open ON visits (left_at)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions; skipped when the column already exists
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"visits", "location", "TEXT NOT NULL DEFAULT ''"},
		{"visits", "sales_json", "TEXT"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil || exists {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// columnExists reports whether table has column. Its rows are closed before
// it returns, so the caller may reuse the pool's only connection.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("closing rows", "error", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}
	return false, nil
}
