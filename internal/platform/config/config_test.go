package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, name := range []string{"STORAGE_DRIVER", "HTTP_PORT", "LEDGER_URL", "WORKER_POLL_INTERVAL", "EMBEDDED_WORKER"} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Fatalf("expected memory storage, got %s", cfg.StorageDriver)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.WorkerPollInterval != 2*time.Second {
		t.Fatalf("expected 2s poll interval, got %s", cfg.WorkerPollInterval)
	}
	if !cfg.EmbeddedWorker {
		t.Fatalf("expected embedded worker by default")
	}
}

func TestLoadFileAppliesEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbiter.env")
	content := "STORAGE_DRIVER=sqlite\nSQLITE_PATH=/tmp/arbiter-test.db\nWORKER_POLL_INTERVAL=250ms\nPROTOCOL_OWNER_ACCOUNT=owner.test\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	for _, name := range []string{"STORAGE_DRIVER", "SQLITE_PATH", "WORKER_POLL_INTERVAL", "PROTOCOL_OWNER_ACCOUNT"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file failed: %v", err)
	}
	if cfg.StorageDriver != StorageSQLite || cfg.SQLitePath != "/tmp/arbiter-test.db" {
		t.Fatalf("unexpected storage config %+v", cfg)
	}
	if cfg.WorkerPollInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", cfg.WorkerPollInterval)
	}
	if cfg.ProtocolOwnerAccount != "owner.test" {
		t.Fatalf("expected owner.test, got %s", cfg.ProtocolOwnerAccount)
	}
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	cfg := Config{
		StorageDriver:        StoragePostgres,
		ProtocolOwnerAccount: "owner",
		PollOperatorAccount:  "polls",
		WorkerPollInterval:   time.Second,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("ARBITER_FLAG", "off")
	if envBool("ARBITER_FLAG", true) {
		t.Fatalf("expected off to parse as false")
	}
	t.Setenv("ARBITER_FLAG", "maybe")
	if !envBool("ARBITER_FLAG", true) {
		t.Fatalf("expected fallback for unknown value")
	}
}
