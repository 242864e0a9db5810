// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/foundryos/foundry/internal/api"
	"github.com/foundryos/foundry/internal/archive"
	"github.com/foundryos/foundry/internal/hub"
	"github.com/foundryos/foundry/internal/manifest"
	"github.com/foundryos/foundry/internal/pattern"
	"github.com/foundryos/foundry/internal/sse"
	"github.com/foundryos/foundry/internal/storage"
	"github.com/foundryos/foundry/internal/store"
	"github.com/foundryos/foundry/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("hub_path", cfg.Hub.Path),
		slog.String("archive_path", cfg.Archive.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure hub directory exists.
	if err := os.MkdirAll(cfg.Hub.Path, 0o755); err != nil {
		return fmt.Errorf("create hub dir: %w", err)
	}

	// Initialize storage.
	provider, err := storage.NewFS(cfg.Hub.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize snapshot archive.
	arc, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	defer arc.Close()

	// Build the engine: manifest store, pattern detector, hub service.
	st := store.New(provider, &manifest.Validator{AllowedTypes: cfg.Hub.AllowedTypes}, logger)
	det := pattern.New(pattern.Config{
		Threshold: cfg.Learning.Threshold,
		Metrics:   cfg.Learning.TrackedMetrics(),
	})
	svc := hub.NewService(provider, st, det, arc, logger)

	// Run initial scan.
	if _, err := svc.Reload(ctx); err != nil {
		logger.Warn("initial hub load failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Build API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start manifest watcher with SSE callback.
	g.Go(func() error {
		return watch.Watch(gCtx, svc, cfg.Hub.Path, logger, broker.PublishManifestEvent)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
