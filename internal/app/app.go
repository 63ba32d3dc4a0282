package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/NASA-AMMOS/aerie-sub006/internal/artifact"
	"github.com/NASA-AMMOS/aerie-sub006/internal/ctxlog"
	"github.com/NASA-AMMOS/aerie-sub006/internal/expansion"
	"github.com/NASA-AMMOS/aerie-sub006/internal/metrics"
	"github.com/NASA-AMMOS/aerie-sub006/internal/service"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store/memory"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store/sqlite"
)

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	cfg     Config
	store   store.Store
	engine  *expansion.Engine
	met     *metrics.Metrics
	service *service.Service
}

// NewApp builds a fully initialized App: logger, persistence backends per
// the configured drivers, worker pool and service facade. The health and
// metrics server starts here when a port is configured.
func NewApp(outW io.Writer, cfg Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	st, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	artifacts, err := newArtifactStore(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	logger.Debug("Persistence backends ready.",
		"store", cfg.StoreDriver, "artifacts", cfg.ArtifactDriver)

	met := metrics.New()
	engine, err := expansion.NewEngine(ctx, expansion.Options{
		Workers:   cfg.Workers,
		Timeout:   cfg.WorkerTimeout,
		CacheSize: cfg.CacheSize,
		Metrics:   met,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &App{
		outW:    outW,
		logger:  logger,
		cfg:     cfg,
		store:   st,
		engine:  engine,
		met:     met,
		service: service.New(st, artifacts, engine, met),
	}
	if cfg.HealthcheckPort > 0 {
		a.startHealthServer(cfg.HealthcheckPort)
	}
	return a, nil
}

func newStore(cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		st, err := sqlite.Open(filepath.Join(cfg.DataDir, "seqgen.db"))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return st, nil
	default:
		return memory.New(), nil
	}
}

func newArtifactStore(cfg Config) (artifact.Store, error) {
	switch cfg.ArtifactDriver {
	case "fs":
		arts, err := artifact.NewFilesystem(filepath.Join(cfg.DataDir, "artifacts"))
		if err != nil {
			return nil, fmt.Errorf("opening artifact store: %w", err)
		}
		return arts, nil
	default:
		return artifact.NewMemory(), nil
	}
}

// Service exposes the facade, primarily for tests.
func (a *App) Service() *service.Service {
	return a.service
}

// Close drains the worker pool and releases the store.
func (a *App) Close() error {
	a.engine.Close()
	return a.store.Close()
}
