package store

import (
	"path/filepath"
	"testing"

	"order-listing/internal/config"
)

func TestNewSQLite_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")

	st, err := NewSQLite(config.DatabaseConfig{Path: path, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer st.Close()

	var mode string
	if err := st.DB().QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected WAL journal mode, got %q", mode)
	}
}

func TestNewSQLite_InMemorySharesSingleConnection(t *testing.T) {
	st, err := NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 8})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer st.Close()

	if _, err := st.DB().Exec(`CREATE TABLE probe (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := st.DB().Exec(`INSERT INTO probe (id) VALUES (1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := st.DB().Stats().MaxOpenConnections; got != 1 {
		t.Errorf("in-memory store must use a single connection, got %d", got)
	}
}
