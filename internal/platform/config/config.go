package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string

	StorageDriver string
	PostgresDSN   string
	SQLitePath    string
	AutoMigrate   bool

	// LedgerURL selects the HTTP ledger client; empty runs the in-memory ledger.
	LedgerURL     string
	LedgerTimeout time.Duration

	ProtocolOwnerAccount string
	PollOperatorAccount  string

	WorkerPollInterval time.Duration
	EmbeddedWorker     bool
}

// Load reads configuration from the environment after applying an optional
// .env file in the working directory.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit env file. A missing default .env is not
// an error; a missing explicit file is.
func LoadFile(envFile string) (Config, error) {
	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		ServiceName: envString("SERVICE_NAME", "arbiter"),
		HTTPPort:    envString("HTTP_PORT", "8080"),

		StorageDriver: strings.ToLower(envString("STORAGE_DRIVER", StorageMemory)),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		SQLitePath:    envString("SQLITE_PATH", "arbiter.db"),
		AutoMigrate:   envBool("AUTO_MIGRATE", true),

		LedgerURL:     strings.TrimSpace(os.Getenv("LEDGER_URL")),
		LedgerTimeout: envDuration("LEDGER_TIMEOUT", 5*time.Second),

		ProtocolOwnerAccount: envString("PROTOCOL_OWNER_ACCOUNT", "arbiter-owner"),
		PollOperatorAccount:  envString("POLL_OPERATOR_ACCOUNT", "arbiter-polls"),

		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		EmbeddedWorker:     envBool("EMBEDDED_WORKER", true),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if strings.TrimSpace(c.ProtocolOwnerAccount) == "" || strings.TrimSpace(c.PollOperatorAccount) == "" {
		return errors.New("protocol owner and poll operator accounts are required")
	}
	if c.WorkerPollInterval <= 0 {
		return errors.New("WORKER_POLL_INTERVAL must be positive")
	}
	return nil
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
