// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package filter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/taibuivan/cardbinder/internal/platform/slot"
)

// Store holds the current [State] and persists it as plain JSON.
type Store struct {
	slot   slot.Store
	logger *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewStore returns a [Store] holding [DefaultState] until [Store.Load] runs.
func NewStore(slotStore slot.Store, logger *slog.Logger) *Store {
	return &Store{
		slot:   slotStore,
		logger: logger,
		state:  DefaultState(),
	}
}

// Load restores the persisted state. A missing or unreadable slot keeps the default.
func (store *Store) Load(ctx context.Context) {
	state := DefaultState()

	payload, ok, err := store.slot.Get(ctx)
	switch {
	case err != nil:
		store.logger.WarnContext(ctx, "filter_load_failed", slog.Any("error", err))
	case ok:
		var persisted State
		if err := json.Unmarshal([]byte(payload), &persisted); err != nil {
			store.logger.WarnContext(ctx, "filter_payload_corrupt", slog.Any("error", err))
		} else {
			state = persisted.Normalize()
		}
	}

	store.mu.Lock()
	store.state = state
	store.mu.Unlock()
}

// State returns a copy of the current selection.
func (store *Store) State() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return cloneState(store.state)
}

/*
Set replaces the selection and writes it through.

A failed write is logged; the new state still applies in memory.

Returns:
  - State: The normalized state now in effect
  - error: When the state names an unknown group
*/
func (store *Store) Set(ctx context.Context, state State) (State, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	normalized := state.Normalize()

	store.mu.Lock()
	store.state = normalized
	store.mu.Unlock()

	payload, err := json.Marshal(normalized)
	if err != nil {
		store.logger.ErrorContext(ctx, "filter_encode_failed", slog.Any("error", err))
		return cloneState(normalized), nil
	}

	if err := store.slot.Set(ctx, string(payload)); err != nil {
		event := "filter_persist_failed"
		if errors.Is(err, slot.ErrQuotaExceeded) {
			event = "filter_quota_exceeded"
		}
		store.logger.WarnContext(ctx, event, slog.Any("error", err))
	}

	return cloneState(normalized), nil
}

func cloneState(state State) State {
	cloned := maps.Clone(state)
	for group, selection := range cloned {
		selection.Values = slices.Clone(selection.Values)
		cloned[group] = selection
	}
	return cloned
}
