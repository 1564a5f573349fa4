// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package collection owns the user's owned-quantity map.

The in-memory map is authoritative. Every mutation schedules a throttled write
of the whole map, in the compact encoding of [Encode], to one durable slot.
A failed write is logged and never surfaces to the caller; the next mutation
simply writes again.
*/
package collection

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/platform/constants"
	"github.com/taibuivan/cardbinder/internal/platform/slot"
)

// persistTimeout bounds one write issued by the throttle timer.
const persistTimeout = 5 * time.Second

// Store is the process-wide collection.
type Store struct {
	slot     slot.Store
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	entries map[string]int
	timer   *time.Timer
	dirty   bool

	// writeMu keeps slot writes ordered when a flush races the timer.
	writeMu sync.Mutex
}

// NewStore creates an empty [Store]. Call [Store.Load] before serving.
// A non-positive interval falls back to [constants.DefaultPersistInterval].
func NewStore(slotStore slot.Store, interval time.Duration, logger *slog.Logger) *Store {
	if interval <= 0 {
		interval = constants.DefaultPersistInterval
	}
	return &Store{
		slot:     slotStore,
		logger:   logger,
		interval: interval,
		entries:  make(map[string]int),
	}
}

// # Lifecycle

/*
Load reads the slot once and replaces the in-memory map.

An unreadable or corrupt payload yields an empty collection; the failure is
logged and Load still succeeds.
*/
func (store *Store) Load(ctx context.Context) {
	entries := map[string]int{}

	payload, ok, err := store.slot.Get(ctx)
	switch {
	case err != nil:
		store.logger.WarnContext(ctx, "collection_load_failed", slog.Any("error", err))
	case ok:
		decoded, decodeErr := Decode(payload)
		if decodeErr != nil {
			store.logger.WarnContext(ctx, "collection_payload_corrupt",
				slog.Any("error", decodeErr),
				slog.Int("bytes", len(payload)),
			)
		} else {
			entries = decoded
		}
	}

	store.mu.Lock()
	store.entries = entries
	store.mu.Unlock()

	store.logger.InfoContext(ctx, "collection_loaded", slog.Int("entries", len(entries)))
}

// Flush writes the current map immediately and cancels any pending timer.
func (store *Store) Flush(ctx context.Context) {
	store.mu.Lock()
	if store.timer != nil {
		store.timer.Stop()
		store.timer = nil
	}
	snapshot := maps.Clone(store.entries)
	store.dirty = false
	store.mu.Unlock()

	store.persist(ctx, snapshot)
}

// Close flushes a pending write, if any. Used on shutdown.
func (store *Store) Close(ctx context.Context) {
	store.mu.Lock()
	dirty := store.dirty
	store.mu.Unlock()

	if dirty {
		store.Flush(ctx)
	}
}

// # Quantities

// Quantity returns the owned copies for a key. Missing keys own zero.
func (store *Store) Quantity(key string) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.entries[key]
}

/*
SetQuantity stores a requested quantity for a key.

Parameters:
  - key: string (a card key from [card.Resolver.Key])
  - requested: any (int, float, numeric string; anything else counts as 0)

Returns:
  - int: The stored quantity, clamped at zero. Zero removes the entry.
*/
func (store *Store) SetQuantity(key string, requested any) int {
	quantity := Coerce(requested)

	store.mu.Lock()
	if quantity == 0 {
		delete(store.entries, key)
	} else {
		store.entries[key] = quantity
	}
	store.scheduleLocked()
	store.mu.Unlock()

	return quantity
}

// Entries returns a snapshot of every non-zero entry.
func (store *Store) Entries() map[string]int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return maps.Clone(store.entries)
}

// Len returns the number of owned keys.
func (store *Store) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.entries)
}

/*
MigrateLegacy rewrites entries keyed by a bare code into full card keys.

Older versions keyed the map by code alone. Each such entry moves to the key
of the first loaded card with that code; quantities add up when both exist.
Codes with no loaded card are left untouched.

Returns:
  - int: The number of migrated entries
*/
func (store *Store) MigrateLegacy(cards []card.Card, keyFn func(card.Card) string) int {
	firstByCode := make(map[string]card.Card, len(cards))
	for _, c := range cards {
		if _, seen := firstByCode[c.Code]; !seen {
			firstByCode[c.Code] = c
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	migrated := 0
	for key, quantity := range store.entries {
		if _, _, full := card.SplitKey(key); full {
			continue
		}
		c, ok := firstByCode[key]
		if !ok {
			continue
		}

		newKey := keyFn(c)
		store.entries[newKey] += quantity
		delete(store.entries, key)
		migrated++
	}

	if migrated > 0 {
		store.scheduleLocked()
		store.logger.Info("collection_legacy_migrated", slog.Int("entries", migrated))
	}
	return migrated
}

// # Persistence

// scheduleLocked arms the throttle timer. Caller holds store.mu.
func (store *Store) scheduleLocked() {
	store.dirty = true
	if store.timer != nil {
		return
	}
	store.timer = time.AfterFunc(store.interval, store.onTimer)
}

func (store *Store) onTimer() {
	store.mu.Lock()
	if store.timer == nil {
		// Flush got here first.
		store.mu.Unlock()
		return
	}
	store.timer = nil
	snapshot := maps.Clone(store.entries)
	store.dirty = false
	store.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	store.persist(ctx, snapshot)
}

func (store *Store) persist(ctx context.Context, snapshot map[string]int) {
	payload, err := Encode(snapshot)
	if err != nil {
		store.logger.ErrorContext(ctx, "collection_encode_failed", slog.Any("error", err))
		return
	}

	store.writeMu.Lock()
	defer store.writeMu.Unlock()

	if err := store.slot.Set(ctx, payload); err != nil {
		event := "collection_persist_failed"
		if errors.Is(err, slot.ErrQuotaExceeded) {
			event = "collection_quota_exceeded"
		}
		store.logger.WarnContext(ctx, event,
			slog.Any("error", err),
			slog.Int("entries", len(snapshot)),
			slog.Int("bytes", len(payload)),
		)
		return
	}

	store.logger.DebugContext(ctx, "collection_persisted",
		slog.Int("entries", len(snapshot)),
		slog.Int("bytes", len(payload)),
	)
}
