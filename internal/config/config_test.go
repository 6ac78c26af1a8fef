package config

import (
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"BRD_ADDR", "BRD_STORE", "BRD_DATA_DIR", "BRD_DB_PATH", "DATABASE_URL", "REDIS_URL",
	"BRD_SESSION_TTL", "USE_LLM", "ANTHROPIC_API_KEY", "BRD_LLM_MODEL", "BRD_NORMALIZER_TIMEOUT",
	"BRD_EXPORT_DIR", "BRD_ARTIFACT_SINK", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
	"MINIO_BUCKET", "MINIO_USE_SSL", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "CHROME_PATH",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Store != StoreFile || cfg.DataDir != "./data" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.DBPath != "data/brd.db" {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.Normalizer.Timeout != 20*time.Second || cfg.Normalizer.UseLLM {
		t.Fatalf("unexpected normalizer config %+v", cfg.Normalizer)
	}
	if cfg.ArtifactSink != SinkNone || cfg.ModelEnabled() {
		t.Fatalf("unexpected sink/model defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BRD_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("BRD_SESSION_TTL", "3600")
	t.Setenv("USE_LLM", "yes")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("BRD_NORMALIZER_TIMEOUT", "5s")
	t.Setenv("BRD_ARTIFACT_SINK", "dir")
	t.Setenv("BRD_EXPORT_DIR", "/tmp/brd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != StoreRedis || cfg.RedisURL != "redis://cache:6379/2" {
		t.Fatalf("unexpected store config %+v", cfg)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", cfg.SessionTTL)
	}
	if !cfg.ModelEnabled() || cfg.Normalizer.Timeout != 5*time.Second {
		t.Fatalf("unexpected normalizer config %+v", cfg.Normalizer)
	}
	if cfg.ArtifactSink != SinkDir || cfg.ExportDir != "/tmp/brd" {
		t.Fatalf("unexpected sink config %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown store", map[string]string{"BRD_STORE": "mongo"}, "BRD_STORE"},
		{"postgres without url", map[string]string{"BRD_STORE": "postgres"}, "DATABASE_URL"},
		{"unknown sink", map[string]string{"BRD_ARTIFACT_SINK": "ftp"}, "BRD_ARTIFACT_SINK"},
		{"minio without keys", map[string]string{"BRD_ARTIFACT_SINK": "minio"}, "MINIO_ACCESS_KEY"},
		{"zero timeout", map[string]string{"BRD_NORMALIZER_TIMEOUT": "0s"}, "BRD_NORMALIZER_TIMEOUT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestModelEnabledNeedsKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_LLM", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ModelEnabled() {
		t.Fatal("model must stay disabled without an API key")
	}
}
