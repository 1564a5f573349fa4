// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/cardbinder/internal/api"
	"github.com/taibuivan/cardbinder/internal/dataset"
	"github.com/taibuivan/cardbinder/internal/offline"
	"github.com/taibuivan/cardbinder/internal/platform/config"
	"github.com/taibuivan/cardbinder/internal/platform/constants"
	"github.com/taibuivan/cardbinder/internal/platform/migration"
	pgstore "github.com/taibuivan/cardbinder/internal/platform/postgres"
	redisstore "github.com/taibuivan/cardbinder/internal/platform/redis"
	"github.com/taibuivan/cardbinder/internal/platform/slot"
)

// cacheBackend is the opened partition storage plus what it takes to check and close it.
type cacheBackend struct {
	storage offline.Storage
	check   *api.HealthCheck
	close   func()
}

// openCacheStorage opens the storage selected by CACHE_BACKEND.
func openCacheStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*cacheBackend, error) {
	switch cfg.CacheBackend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &cacheBackend{
			storage: offline.NewPostgresStorage(pool),
			check: &api.HealthCheck{Name: "postgres", Ping: func(ctx context.Context) error {
				return pgstore.Ping(ctx, pool)
			}},
			close: func() {
				log.Info("closing_postgres_pool")
				pool.Close()
			},
		}, nil

	case config.BackendSQLite:
		storage, err := offline.OpenSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite_cache_opened", slog.String("path", cfg.SQLitePath))
		return &cacheBackend{
			storage: storage,
			check:   &api.HealthCheck{Name: "sqlite", Ping: storage.Ping},
			close: func() {
				if err := storage.Close(); err != nil {
					log.Error("sqlite_close_failed", slog.Any("error", err))
				}
			},
		}, nil

	default:
		log.Warn("memory_cache_backend", slog.String("note", "cache is lost on restart"))
		storage := offline.NewMemoryStorage()
		return &cacheBackend{storage: storage, close: func() { _ = storage.Close() }}, nil
	}
}

// stateBackend holds the durable slots of the collection, the filters and the usage counters.
type stateBackend struct {
	collection slot.Store
	filters    slot.Store
	usage      dataset.CounterStore
	check      *api.HealthCheck
	close      func()
}

// openStateSlots opens the slots selected by STATE_BACKEND.
func openStateSlots(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stateBackend, error) {
	if cfg.StateBackend != config.BackendRedis {
		log.Warn("memory_state_backend", slog.String("note", "collection is lost on restart"))
		return &stateBackend{
			collection: slot.NewMemory(),
			filters:    slot.NewMemory(),
			close:      func() {},
		}, nil
	}

	rdb, err := redisstore.NewClient(ctx, cfg.RedisURL, log)
	if err != nil {
		return nil, err
	}

	return &stateBackend{
		collection: redisstore.NewSlot(rdb, constants.RedisKeyCollection),
		filters:    redisstore.NewSlot(rdb, constants.RedisKeyFilters),
		usage:      redisstore.NewCounter(rdb, constants.RedisKeyUsage),
		check: &api.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}},
		close: func() { closeRedis(rdb, log) },
	}, nil
}

func closeRedis(rdb *goredis.Client, log *slog.Logger) {
	log.Info("closing_redis_client")
	if err := rdb.Close(); err != nil {
		log.Error("redis_close_failed", slog.Any("error", err))
	}
}
