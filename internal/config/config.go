// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	SinkNone  = "none"
	SinkDir   = "dir"
	SinkMinio = "minio"
)

// Config holds all application configuration.
type Config struct {
	Addr        string
	Store       string
	DataDir     string
	DBPath      string
	DatabaseURL string
	RedisURL    string
	SessionTTL  time.Duration

	Normalizer NormalizerConfig

	ExportDir    string
	ArtifactSink string
	Minio        MinioConfig

	OTLPEndpoint string
	ServiceName  string
	ChromePath   string
}

type NormalizerConfig struct {
	UseLLM  bool
	APIKey  string
	Model   string
	Timeout time.Duration
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dataDir := getEnv("BRD_DATA_DIR", "./data")
	cfg := &Config{
		Addr:        getEnv("BRD_ADDR", ":8080"),
		Store:       strings.ToLower(getEnv("BRD_STORE", StoreFile)),
		DataDir:     dataDir,
		DBPath:      getEnv("BRD_DB_PATH", filepath.Join(dataDir, "brd.db")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:  getEnvDuration("BRD_SESSION_TTL", 30*24*time.Hour),
		Normalizer: NormalizerConfig{
			UseLLM:  getEnvBool("USE_LLM", false),
			APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			Model:   getEnv("BRD_LLM_MODEL", ""),
			Timeout: getEnvDuration("BRD_NORMALIZER_TIMEOUT", 20*time.Second),
		},
		ExportDir:    getEnv("BRD_EXPORT_DIR", filepath.Join(dataDir, "exports")),
		ArtifactSink: strings.ToLower(getEnv("BRD_ARTIFACT_SINK", SinkNone)),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "brd-exports"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "brd-assistant"),
		ChromePath:   getEnv("CHROME_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("BRD_ADDR cannot be empty")
	}
	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.DataDir == "" {
			return fmt.Errorf("BRD_DATA_DIR cannot be empty for the file store")
		}
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("BRD_DB_PATH cannot be empty for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("BRD_STORE must be one of memory, file, sqlite, postgres, redis (got %q)", c.Store)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("BRD_SESSION_TTL must be >= 0")
	}
	if c.Normalizer.Timeout <= 0 {
		return fmt.Errorf("BRD_NORMALIZER_TIMEOUT must be > 0")
	}
	switch c.ArtifactSink {
	case SinkNone:
	case SinkDir:
		if c.ExportDir == "" {
			return fmt.Errorf("BRD_EXPORT_DIR cannot be empty for the dir sink")
		}
	case SinkMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio sink")
		}
		if c.Minio.AccessKey == "" || c.Minio.SecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio sink")
		}
	default:
		return fmt.Errorf("BRD_ARTIFACT_SINK must be one of none, dir, minio (got %q)", c.ArtifactSink)
	}
	return nil
}

// ModelEnabled reports whether the model normalizer can actually be used.
func (c *Config) ModelEnabled() bool {
	return c.Normalizer.UseLLM && strings.TrimSpace(c.Normalizer.APIKey) != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
