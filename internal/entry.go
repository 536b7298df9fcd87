// Package internal provides the main application initialization and
// runtime logic.
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

	"github.com/starford/perthro/internal/api"
	"github.com/starford/perthro/internal/deckfile"
	"github.com/starford/perthro/internal/exporter"
	"github.com/starford/perthro/internal/ids"
	"github.com/starford/perthro/internal/mcpserver"
	"github.com/starford/perthro/internal/storage"
	"github.com/starford/perthro/internal/watch"
)

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if app.alloc == nil {
		app.alloc = ids.NewRandom()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// exporterFactory builds per-call exporters wired to the configured
// storage provider and media limits.
func exporterFactory(cfg *Config, alloc ids.Allocator, store storage.Provider, logger *slog.Logger) func(deckName, filename string) *exporter.Exporter {
	client := &http.Client{Timeout: cfg.Media.Timeout()}
	return func(deckName, filename string) *exporter.Exporter {
		if deckName == "" {
			deckName = cfg.Export.DeckName
		}
		return exporter.New(exporter.Options{
			DeckName:    deckName,
			Filename:    filename,
			Alloc:       alloc,
			Resolver:    store,
			Client:      client,
			Concurrency: cfg.Media.Concurrency,
			Logger:      logger,
		})
	}
}

// RunExport exports the deck file at deckPath once, or repeatedly on
// change when watchMode is set.
func RunExport(ctx context.Context, deckPath string, watchMode bool, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store, err := storage.NewFS(cfg.Media.Root, cfg.Export.OutputDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	factory := exporterFactory(cfg, app.alloc, store, logger)

	runOnce := func(ctx context.Context) error {
		df, err := deckfile.Load(deckPath)
		if err != nil {
			return err
		}
		res, err := factory(df.Deck, df.Output).Export(ctx, df.Cards)
		if err != nil {
			return err
		}
		path, err := store.WriteArchive(res.Data, res.Filename)
		if err != nil {
			return err
		}
		logger.Info("package written",
			slog.String("path", path),
			slog.Int("notes", res.Stats.TotalNotes),
			slog.Int("cards", res.Stats.TotalCards),
			slog.Int("clozes", res.Stats.TotalClozes),
			slog.Int("media_requested", res.Stats.MediaRequested),
			slog.Int("media_embedded", res.Stats.MediaEmbedded))
		return nil
	}

	if err := runOnce(ctx); err != nil {
		return err
	}
	if !watchMode {
		return nil
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watch.File(sigCtx, deckPath, logger, func(ctx context.Context) {
		if err := runOnce(ctx); err != nil {
			logger.Error("re-export failed", slog.String("error", err.Error()))
		}
	})
}

// RunServe starts the HTTP API and blocks until shutdown.
func RunServe(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store, err := storage.NewFS(cfg.Media.Root, cfg.Export.OutputDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	factory := exporterFactory(cfg, app.alloc, store, logger)
	apiRouter := api.NewRouter(api.NewHandler(factory), cfg.Auth.Enabled(), cfg.Auth.Token)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

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

// RunMCP starts the stdio MCP server.
func RunMCP(_ context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store, err := storage.NewFS(cfg.Media.Root, cfg.Export.OutputDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	factory := exporterFactory(cfg, app.alloc, store, logger)

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(mcpserver.ExporterFactory(factory)).ServeStdio()
}
