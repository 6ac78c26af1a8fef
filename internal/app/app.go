// Package app wires configuration into a ready assistant.Service for the
// binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joelkehle/brd-assistant/internal/artifacts"
	"github.com/joelkehle/brd-assistant/internal/assistant"
	"github.com/joelkehle/brd-assistant/internal/brd"
	"github.com/joelkehle/brd-assistant/internal/config"
	"github.com/joelkehle/brd-assistant/internal/normalize"
	"github.com/joelkehle/brd-assistant/internal/store"
)

type App struct {
	Service *assistant.Service
	Store   store.Store

	closers []func() error
}

// New builds the store, normalizer, artifact sink and PDF renderer selected
// by cfg. Close releases whatever New opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	st, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = st

	n := normalize.New(normalize.Options{
		UseModel: cfg.Normalizer.UseLLM,
		APIKey:   cfg.Normalizer.APIKey,
		Model:    cfg.Normalizer.Model,
		Timeout:  cfg.Normalizer.Timeout,
	})

	opts := []assistant.Option{
		assistant.WithPDFRenderer(brd.NewChromiumPDFRenderer(cfg.ChromePath)),
	}
	sink, err := openSink(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if sink != nil {
		opts = append(opts, assistant.WithArtifactSink(sink))
	}

	a.Service = assistant.New(st, n, opts...)
	log.Printf("assistant ready store=%s sink=%s model=%t", cfg.Store, cfg.ArtifactSink, cfg.ModelEnabled())
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreFile:
		return store.NewFile(cfg.DataDir)
	case config.StoreSQLite:
		s, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.StorePostgres:
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := store.NewPostgres(pingCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.StoreRedis:
		s, err := store.NewRedis(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func openSink(ctx context.Context, cfg *config.Config) (artifacts.Sink, error) {
	switch cfg.ArtifactSink {
	case config.SinkDir:
		return artifacts.NewDir(cfg.ExportDir)
	case config.SinkMinio:
		return artifacts.NewMinio(ctx, artifacts.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
	default:
		return nil, nil
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
