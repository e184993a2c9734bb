package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/execoach/config"
	"github.com/c360studio/execoach/llm"
	"github.com/c360studio/execoach/metrics"
	"github.com/c360studio/execoach/processor/orchestrator"
	"github.com/c360studio/execoach/storage"
)

// App wires the store, the model client and the orchestrator from config.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *storage.Store
	calls   *llm.CallStore
	metrics *metrics.Metrics
	client  *llm.Client
	coach   *orchestrator.Orchestrator
}

// NewApp creates a new application instance. A call log that cannot be
// opened is logged and skipped.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.Open(cfg.StatePath(), storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	app := &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.New(),
	}

	clientOpts := []llm.ClientOption{
		llm.WithLogger(logger),
		llm.WithTimeout(cfg.Model.Timeout),
		llm.WithObserver(app.metrics),
	}
	if path := cfg.CallLogPath(); path != "" {
		calls, err := llm.OpenCallStore(ctx, path)
		if err != nil {
			logger.Warn("Call log disabled", "path", path, "error", err)
		} else {
			app.calls = calls
			clientOpts = append(clientOpts, llm.WithCallStore(calls))
		}
	}
	app.client = llm.NewClient(cfg.Registry(), clientOpts...)

	app.coach, err = orchestrator.New(store, app.client,
		orchestrator.WithConfig(cfg.Orchestrator()),
		orchestrator.WithLogger(logger),
		orchestrator.WithRecorder(app.metrics),
	)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	logger.Debug("Application initialized",
		"state", store.Path(),
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
		"model_configured", cfg.ModelConfigured())
	return app, nil
}

// Close releases the call log.
func (a *App) Close() error {
	if a.calls == nil {
		return nil
	}
	return a.calls.Close()
}

// withApp builds an App for the duration of fn.
func (c *cli) withApp(ctx context.Context, fn func(*App) error) error {
	app, err := NewApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			c.logger.Warn("Failed to close call log", "error", err)
		}
	}()
	return fn(app)
}
