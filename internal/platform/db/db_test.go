package db

import (
	"path/filepath"
	"testing"
)

func TestConnectSQLite(t *testing.T) {
	database, err := Connect("sqlite", filepath.Join(t.TempDir(), "arbiter.db"))
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer database.Close()

	var one int
	if err := database.DB.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected 1, got %d", one)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect("oracle", "dsn"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := Connect("postgres", " "); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
