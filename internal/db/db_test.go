package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "shopdesk.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "shopdesk.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "shopdesk.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestMigrations(t *testing.T) {
	d := openTestDB(t)

	want := []string{
		"seq", "id", "customer_id", "customer_name", "visit_type", "service",
		"arrived_at", "expected_leave_at", "left_at", "notes", "created_at",
		"location", "sales_json",
	}

	cols := tableColumns(t, d, "visits")
	if len(cols) != len(want) {
		t.Fatalf("got %d columns, want %d: %v", len(cols), len(want), cols)
	}
	for i, w := range want {
		if cols[i] != w {
			t.Errorf("column %d = %q, want %q", i, cols[i], w)
		}
	}
}

func TestNoStatusColumn(t *testing.T) {
	d := openTestDB(t)

	for _, c := range tableColumns(t, d, "visits") {
		if c == "status" {
			t.Fatal("visits table must not store a derived status")
		}
	}
}

func TestVisitTypeConstraint(t *testing.T) {
	d := openTestDB(t)

	insert := `INSERT INTO visits (id, customer_name, visit_type, arrived_at) VALUES (?, ?, ?, ?)`

	tests := []struct {
		name      string
		visitType string
		wantErr   bool
	}{
		{"Ask is valid", "Ask", false},
		{"Service is valid", "Service", false},
		{"Sales is valid", "Sales", false},
		{"lowercase is invalid", "service", true},
		{"unknown is invalid", "Repair", true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Exec(insert, fmt.Sprintf("v-%d", i), "Dana", tt.visitType, "2024-01-01T09:00:00Z")
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUniqueVisitID(t *testing.T) {
	d := openTestDB(t)

	insert := `INSERT INTO visits (id, customer_name, visit_type, arrived_at) VALUES (?, ?, ?, ?)`
	if _, err := d.Exec(insert, "dup", "Dana", "Ask", "2024-01-01T09:00:00Z"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := d.Exec(insert, "dup", "Lee", "Ask", "2024-01-01T09:05:00Z"); err == nil {
		t.Error("expected unique constraint error for duplicate id")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopdesk.db")

	// Open twice; migrations should not fail on the second run
	d1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d1.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (idempotency): %v", err)
	}
	if err := d2.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpenInMemory(t *testing.T) {
	d, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()

	// The schema must survive across statements on the single connection.
	if _, err := d.Exec(`INSERT INTO visits (id, customer_name, visit_type, arrived_at) VALUES ('m', 'Dana', 'Ask', '2024-01-01T09:00:00Z')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var n int
	if err := d.QueryRow("SELECT COUNT(*) FROM visits").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestOpenSingleWriter(t *testing.T) {
	d := openTestDB(t)

	if got := d.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("max open connections = %d, want 1", got)
	}

	var timeout int
	if err := d.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if timeout != busyTimeoutMS {
		t.Errorf("busy_timeout = %d, want %d", timeout, busyTimeoutMS)
	}
}

func TestOpenCreatesPrivateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shopdesk")
	d, err := Open(filepath.Join(dir, "shopdesk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("directory mode = %v, want no group or other access", perm)
	}
}

func TestColumnExists(t *testing.T) {
	d := openTestDB(t)

	tests := []struct {
		column string
		want   bool
	}{
		{"customer_name", true},
		{"sales_json", true},
		{"status", false},
	}
	for _, tt := range tests {
		got, err := columnExists(d, "visits", tt.column)
		if err != nil {
			t.Fatalf("columnExists(%s): %v", tt.column, err)
		}
		if got != tt.want {
			t.Errorf("columnExists(%s) = %v, want %v", tt.column, got, tt.want)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "shopdesk.db" {
		t.Errorf("expected filename shopdesk.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != "shopdesk" {
		t.Errorf("expected directory shopdesk, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopdesk.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
