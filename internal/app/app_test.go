package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/joelkehle/brd-assistant/internal/config"
)

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Addr:         ":0",
		Store:        config.StoreMemory,
		DataDir:      dir,
		DBPath:       filepath.Join(dir, "brd.db"),
		SessionTTL:   time.Hour,
		Normalizer:   config.NormalizerConfig{Timeout: time.Second},
		ExportDir:    filepath.Join(dir, "exports"),
		ArtifactSink: config.SinkNone,
	}
}

func TestNewBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cases := []struct {
		name  string
		apply func(*config.Config)
	}{
		{"memory", func(*config.Config) {}},
		{"file", func(c *config.Config) { c.Store = config.StoreFile }},
		{"sqlite", func(c *config.Config) { c.Store = config.StoreSQLite }},
		{"redis", func(c *config.Config) {
			c.Store = config.StoreRedis
			c.RedisURL = "redis://" + mr.Addr()
		}},
		{"dir sink", func(c *config.Config) { c.ArtifactSink = config.SinkDir }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig(t)
			tc.apply(cfg)
			a, err := New(context.Background(), cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer a.Close()

			view, err := a.Service.CreateSession(context.Background())
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			if _, err := a.Service.Resume(context.Background(), view.SessionID); err != nil {
				t.Fatalf("Resume: %v", err)
			}
		})
	}
}

func TestNewUnknownStore(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Store = "mongo"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Store = config.StoreSQLite
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
