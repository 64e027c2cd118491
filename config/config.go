/*
Package config loads server settings from the environment.

PURPOSE:
  One place for every knob of the server. Values come from the process
  environment (optionally seeded from a .env file by the caller) and can
  be overridden by command-line flags in cmd/server.

ENVIRONMENT:
  PORT                  HTTP port (8080)
  STORE_DRIVER          memory | sqlite | postgres (sqlite)
  SQLITE_PATH           SQLite file, ":memory:" allowed (leave.db)
  DATABASE_URL          Postgres connection string
  DOCUMENT_STORAGE      local | s3 | none (local)
  DOCUMENT_DIR          Root for local documents (./uploads)
  DOCUMENT_BASE_URL     URL prefix for local documents (/uploads)
  S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PREFIX
  LOG_LEVEL             logrus level (info)
  LOG_FORMAT            text | json (text)
  CORS_ORIGINS          Comma separated origins (*)
  MAX_UPLOAD_BYTES      Multipart body limit (10 MiB)
  TX_MAX_ATTEMPTS       Retries on concurrent modification (3)
  SHUTDOWN_TIMEOUT      Graceful shutdown wait (30s)

SEE ALSO:
  - cmd/server/main.go: Flags and wiring
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Document storage backends.
const (
	DocumentsLocal = "local"
	DocumentsS3    = "s3"
	DocumentsNone  = "none"
)

// Config holds the server settings.
type Config struct {
	Port int

	StoreDriver string
	SQLitePath  string
	DatabaseURL string

	DocumentStorage string
	DocumentDir     string
	DocumentBaseURL string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3Prefix        string

	LogLevel  string
	LogFormat string

	CORSOrigins     []string
	MaxUploadBytes  int64
	TxMaxAttempts   int
	ShutdownTimeout time.Duration
}

// Load reads the environment, applying defaults for unset keys.
func Load() Config {
	return Config{
		Port:            getEnvInt("PORT", 8080),
		StoreDriver:     strings.ToLower(getEnvString("STORE_DRIVER", StoreSQLite)),
		SQLitePath:      getEnvString("SQLITE_PATH", "leave.db"),
		DatabaseURL:     getEnvString("DATABASE_URL", ""),
		DocumentStorage: strings.ToLower(getEnvString("DOCUMENT_STORAGE", DocumentsLocal)),
		DocumentDir:     getEnvString("DOCUMENT_DIR", "./uploads"),
		DocumentBaseURL: getEnvString("DOCUMENT_BASE_URL", "/uploads"),
		S3Bucket:        getEnvString("S3_BUCKET", ""),
		S3Region:        getEnvString("S3_REGION", "ap-south-1"),
		S3Endpoint:      getEnvString("S3_ENDPOINT", ""),
		S3Prefix:        getEnvString("S3_PREFIX", ""),
		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		LogFormat:       strings.ToLower(getEnvString("LOG_FORMAT", "text")),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		TxMaxAttempts:   getEnvInt("TX_MAX_ATTEMPTS", 3),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate reports settings that cannot start a server.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	switch c.DocumentStorage {
	case DocumentsNone:
	case DocumentsLocal:
		if c.DocumentDir == "" {
			return fmt.Errorf("DOCUMENT_DIR is required for local document storage")
		}
	case DocumentsS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 document storage")
		}
	default:
		return fmt.Errorf("unknown document storage %q", c.DocumentStorage)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnvString(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := getEnvString(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value := getEnvString(key, "")
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
