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

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/executor"
	"github.com/starford/ansuz/internal/intent"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/voice"
)

// openStore builds the configured record store backend.
func openStore(cfg *Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case BackendSQLite:
		return store.OpenSQLite(cfg.Store.Path)
	default:
		return store.NewMemory(), nil
	}
}

// newInterpreterSource builds the interpreter, applying the vocabulary
// override file when configured.
func newInterpreterSource(cfg *Config, logger *slog.Logger) *intent.Source {
	vocab := intent.DefaultVocabulary()
	if path := cfg.Voice.Vocabulary; path != "" {
		v, err := intent.LoadVocabulary(path)
		if err != nil {
			logger.Warn("vocabulary load failed, using defaults", slog.String("error", err.Error()))
		} else {
			vocab = v
		}
	}
	return intent.NewSource(intent.New(vocab))
}

// Run starts the HTTP server with the given options.
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
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("user_id", cfg.Account.UserID),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	// SSE broker; contextual updates reach the browser through it.
	broker := sse.NewBroker()
	defer broker.Close()
	courier := voice.NewSSECourier(broker)

	src := newInterpreterSource(cfg, logger)
	exec := executor.New(st, cfg.Account.UserID, courier)

	h := api.NewHandler(exec, st, cfg.Account.UserID, src, broker, courier)
	router := api.NewRouter(h, broker)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Vocabulary hot reload.
	if path := cfg.Voice.Vocabulary; path != "" {
		g.Go(func() error {
			if err := intent.Watch(gCtx, src, path, logger); err != nil {
				logger.Warn("vocabulary watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

// RunMCP serves the tool set over MCP stdio transport. Logs go to
// stderr because stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	exec := executor.New(st, cfg.Account.UserID, &voice.LogCourier{Logger: logger})

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(exec).ServeStdio()
}
