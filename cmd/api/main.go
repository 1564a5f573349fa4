// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the cardbinder server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Set up tracing (no-op without OTEL_ENDPOINT).
//  4. Open the offline cache storage (PostgreSQL + migrations, SQLite or memory).
//  5. Open the state slots (Redis or memory).
//  6. Start the notification hub and the offline cache manager.
//  7. Wire the dataset fetcher, loader and catalog.
//  8. Restore the collection and filters.
//  9. Load the catalog.
//  10. Start prefetch and the local dataset watcher.
//  11. Start HTTP server.
//  12. Graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/taibuivan/cardbinder/internal/api"
	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/catalog"
	"github.com/taibuivan/cardbinder/internal/collection"
	"github.com/taibuivan/cardbinder/internal/dataset"
	"github.com/taibuivan/cardbinder/internal/filter"
	"github.com/taibuivan/cardbinder/internal/offline"
	"github.com/taibuivan/cardbinder/internal/platform/config"
	"github.com/taibuivan/cardbinder/internal/platform/constants"
	"github.com/taibuivan/cardbinder/internal/platform/middleware"
	"github.com/taibuivan/cardbinder/internal/platform/otel"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("cache_backend", cfg.CacheBackend),
		slog.String("state_backend", cfg.StateBackend),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Background work (sweeps, prefetch, watcher) stops with this context.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. Tracing ────────────────────────────────────────────────────────
	shutdownTracing, err := otel.Setup(startupCtx, cfg.OTelEndpoint)
	must(log, err, "set up tracing")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Error("tracing_shutdown_failed", slog.Any("error", err))
		}
	}()

	// ── 4. Offline Cache Storage ─────────────────────────────────────────
	cache, err := openCacheStorage(startupCtx, cfg, log)
	must(log, err, "open cache storage")
	defer cache.close()

	// ── 5. State Slots ────────────────────────────────────────────────────
	state, err := openStateSlots(startupCtx, cfg, log)
	must(log, err, "open state slots")
	defer state.close()

	var checks []api.HealthCheck
	for _, check := range []*api.HealthCheck{cache.check, state.check} {
		if check != nil {
			checks = append(checks, *check)
		}
	}
	liveness, readiness := api.NewHealthHandlers(checks, log)

	// ── 6. Notification Hub & Cache Manager ───────────────────────────────
	hub := offline.NewHub(func(request *http.Request) bool {
		origin := request.Header.Get(constants.HeaderOrigin)
		return origin == "" || cfg.IsDevelopment() || middleware.AllowedOrigin(cfg, origin)
	}, log)

	manager := offline.NewManager(offline.Options{
		Storage:      cache.storage,
		ImageDomain:  cfg.ImageDomain,
		AppOrigin:    cfg.AppOrigin,
		ImageTimeout: cfg.ImageFetchTimeout,
		Notifier:     hub,
		Logger:       log,
	})

	_, err = manager.Activate(startupCtx)
	must(log, err, "activate offline cache")

	go manager.Install(appCtx)
	go manager.Run(appCtx, cfg.SweepInterval)

	// ── 7. Dataset & Catalog ──────────────────────────────────────────────
	dataClient, dataBase, err := dataset.ClientFor(cfg.DatasetOrigin, manager)
	must(log, err, "configure dataset origin")

	usage := dataset.NewUsageTracker(state.usage, log)
	fetcher := dataset.NewFetcher(dataClient, dataBase, cfg.BatchSize, usage, log)
	holder := dataset.NewHolder()
	loader := dataset.NewLoader(fetcher, holder, cfg.Sets, log)

	collectionStore := collection.NewStore(state.collection, cfg.PersistInterval, log)
	filterStore := filter.NewStore(state.filters, log)

	service := catalog.NewService(catalog.Deps{
		Holder:     holder,
		Loader:     loader,
		Resolver:   card.NewResolver(cfg.AssetBaseURL),
		Index:      card.NewIndex(nil),
		Collection: collectionStore,
		Filters:    filterStore,
		Manager:    manager,
		Logger:     log,
	})

	// ── 8. Collection & Filters ───────────────────────────────────────────
	collectionStore.Load(startupCtx)
	filterStore.Load(startupCtx)

	// ── 9. Initial Load ───────────────────────────────────────────────────
	// An empty or failed load is not fatal: the API reports it and a reload
	// can be requested later.
	if err := service.LoadAll(startupCtx, nil); err != nil {
		log.Warn("initial_load_incomplete", slog.Any("error", err))
	}

	// ── 10. Prefetch & Watcher ────────────────────────────────────────────
	if prefetcher := dataset.NewPrefetcher(fetcher, usage, cfg.PrefetchRPS, log); prefetcher != nil && !cfg.DatasetIsLocal() {
		go prefetcher.Run(appCtx, loader.Sets())
	}

	if cfg.WatchDataset && cfg.DatasetIsLocal() {
		dir := filepath.Join(dataset.LocalRoot(cfg.DatasetOrigin), "data")
		watcher := dataset.NewWatcher(dir, dataset.DefaultDebounce, func(ctx context.Context) {
			if err := service.LoadAll(ctx, nil); err != nil {
				log.Warn("watched_reload_failed", slog.Any("error", err))
			}
		}, log)
		go func() {
			if err := watcher.Run(appCtx); err != nil {
				log.Error("dataset_watcher_stopped", slog.Any("error", err))
			}
		}()
	}

	// ── 11. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:      liveness,
		Readiness:     readiness,
		Catalog:       catalog.NewHandler(service),
		Notifications: hub,
		Proxy: offline.NewProxy(manager, dataClient.Transport, offline.Upstreams{
			App:    cfg.AppOrigin,
			Data:   dataBase,
			Assets: cfg.AssetBaseURL,
		}, log),
	}

	server := api.NewServer(appCtx, cfg, log, handlers)

	// ── 12. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	hub.Close()
	shutdownErr := server.Shutdown(shutdownTimeout)
	appCancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	collectionStore.Close(flushCtx)
	flushCancel()
	manager.Wait()

	if shutdownErr != nil {
		log.Error("shutdown_error", slog.Any("error", shutdownErr))
		return
	}

	log.Info("server_stopped_cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
