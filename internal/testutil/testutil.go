// Package testutil provides shared test helpers for inspecting
// serialized collections.
package testutil

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDB writes SQLite database bytes to a temp file and opens them,
// cleaning both up when the test ends.
func OpenDB(t *testing.T, data []byte) *sql.DB {
	t.Helper()
	f, err := os.CreateTemp("", "perthro-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := sql.Open("sqlite3", f.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
