package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/atinyakov/CoupleHQ/internal/db"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", "some=random", "ping postgres"},
		{"empty DSN", "", "ping postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitPostgres(tc.dsn)
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestInitSQLite_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	conn, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"couples", "sync_queue", "metadata"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Opening twice must be idempotent.
	again, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("second InitSQLite: %v", err)
	}
	again.Close()
}
