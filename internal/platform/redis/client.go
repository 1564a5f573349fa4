// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides a managed client for the durable state slots.

The collection, filter state and usage counters each live in a single Redis
key. This package owns the connection and the slot primitives; the stores
that encode their own payloads sit on top of [Slot] and [Counter].

Core Responsibilities:

  - Connectivity: Connection pooling and startup validation.
  - Slots: Whole-value GET/SET of one key.
  - Counters: Hash increments for usage telemetry.
*/
package redis

import (
	stdctx "context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/cardbinder/internal/platform/slot"
)

// Opiniated default timeouts for Redis operations.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// NewClient parses a Redis URL and returns a ready-to-use client.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	// A single browsing context never needs a large pool.
	options.PoolSize = 4
	options.MinIdleConns = 1
	options.MaxIdleConns = 2

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup.
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis client connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// # Slots

// Slot is one durable string value stored under a fixed key.
type Slot struct {
	client *redis.Client
	key    string
}

// NewSlot binds a [Slot] to key.
func NewSlot(client *redis.Client, key string) *Slot {
	return &Slot{client: client, key: key}
}

/*
Get returns the stored value.

Returns:
  - string: The raw payload ("" when the slot has never been written)
  - bool: Whether the slot exists
  - error: Connectivity errors
*/
func (s *Slot) Get(context stdctx.Context) (string, bool, error) {
	value, err := s.client.Get(context, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis_slot_get_failed: %w", err)
	}
	return value, true, nil
}

/*
Set overwrites the slot without expiry.

Returns:
  - error: [slot.ErrQuotaExceeded] when Redis is out of memory, other write errors otherwise
*/
func (s *Slot) Set(context stdctx.Context, value string) error {
	if err := s.client.Set(context, s.key, value, 0).Err(); err != nil {
		if isOutOfMemory(err) {
			return fmt.Errorf("%w: %v", slot.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("redis_slot_set_failed: %w", err)
	}
	return nil
}

// # Counters

// Counter is a Redis hash of named integer counters.
type Counter struct {
	client *redis.Client
	key    string
}

// NewCounter binds a [Counter] to key.
func NewCounter(client *redis.Client, key string) *Counter {
	return &Counter{client: client, key: key}
}

// Incr adds one to the named field.
func (counter *Counter) Incr(context stdctx.Context, field string) error {
	if err := counter.client.HIncrBy(context, counter.key, field, 1).Err(); err != nil {
		return fmt.Errorf("redis_counter_incr_failed: %w", err)
	}
	return nil
}

// All returns every counter in the hash.
func (counter *Counter) All(context stdctx.Context) (map[string]int64, error) {
	raw, err := counter.client.HGetAll(context, counter.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_counter_read_failed: %w", err)
	}

	counts := make(map[string]int64, len(raw))
	for field, value := range raw {
		var n int64
		if _, err := fmt.Sscan(value, &n); err == nil {
			counts[field] = n
		}
	}
	return counts, nil
}

func isOutOfMemory(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM")
}
