package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultClientID is a public Microsoft Graph client that supports the
	// device code flow for personal accounts. Organization accounts may need
	// their own Azure app registration via ONENOTE_CLIENT_ID.
	DefaultClientID = "14d82eec-204b-4c2f-b7e8-296a70dab67e"

	// DefaultTenant targets personal Microsoft accounts.
	DefaultTenant = "consumers"

	// DefaultExportDir is the export root created in the working directory.
	DefaultExportDir = "OneNote_Export"
)

// Config holds all runtime settings for an export run.
type Config struct {
	ClientID  string
	Tenant    string
	ExportDir string
	LogLevel  string

	// MaxRetries bounds retries of a single request on 5xx and network
	// errors. 429 waits are not counted against it.
	MaxRetries int

	// RetryWait is the fallback wait for a 429 without a Retry-After hint.
	RetryWait time.Duration
}

// Load reads configuration from the environment, loading a .env file first
// if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ClientID:   getEnv("ONENOTE_CLIENT_ID", DefaultClientID),
		Tenant:     getEnv("ONENOTE_TENANT", DefaultTenant),
		ExportDir:  getEnv("EXPORT_DIR", DefaultExportDir),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		MaxRetries: 5,
		RetryWait:  10 * time.Second,
	}

	if v, ok := os.LookupEnv("GRAPH_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid GRAPH_MAX_RETRIES %q", v)
		}
		cfg.MaxRetries = n
	}

	if v, ok := os.LookupEnv("GRAPH_RETRY_WAIT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid GRAPH_RETRY_WAIT %q", v)
		}
		cfg.RetryWait = d
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
