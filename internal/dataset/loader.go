// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dataset

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/taibuivan/cardbinder/internal/card"
)

// Loader runs loads against a [Fetcher] and publishes them into a [Holder].
type Loader struct {
	fetcher *Fetcher
	holder  *Holder
	sets    []string
	logger  *slog.Logger

	// mu serializes reloads; a second caller waits for the first.
	mu sync.Mutex
}

// NewLoader creates a [Loader]. Empty sets fall back to [DefaultSets].
func NewLoader(fetcher *Fetcher, holder *Holder, sets []string, logger *slog.Logger) *Loader {
	if len(sets) == 0 {
		sets = DefaultSets()
	}
	return &Loader{fetcher: fetcher, holder: holder, sets: slices.Clone(sets), logger: logger}
}

// Sets returns the configured set codes.
func (loader *Loader) Sets() []string {
	return slices.Clone(loader.sets)
}

/*
Reload loads the given sets (the configured ones when empty) and publishes
the result.

Returns:
  - error: [ErrNoCards] when the load ended empty (the holder is then in
    [StateEmpty]), or the context error (the previous catalog is kept)
*/
func (loader *Loader) Reload(ctx context.Context, sets []string) error {
	if len(sets) == 0 {
		sets = loader.sets
	}

	loader.mu.Lock()
	defer loader.mu.Unlock()

	loader.holder.Begin()

	cards, err := loader.fetcher.LoadAll(ctx, sets)
	switch {
	case errors.Is(err, ErrNoCards):
		loader.logger.WarnContext(ctx, "dataset_empty", slog.Int("sets", len(sets)))
		loader.holder.Publish(nil, sets)
		return err
	case err != nil:
		// Cancelled mid-load; put the previous catalog back as it was.
		previous, _ := loader.holder.Cards()
		snapshot := loader.holder.Snapshot()
		loader.holder.current.Store(&Snapshot{
			State:    restoredState(previous, snapshot),
			Cards:    previous,
			Count:    len(previous),
			Sets:     snapshot.Sets,
			LoadedAt: snapshot.LoadedAt,
		})
		return err
	}

	loader.holder.Publish(cards, sets)
	return nil
}

func restoredState(previous []card.Card, snapshot *Snapshot) State {
	if len(previous) > 0 {
		return StateLoaded
	}
	if !snapshot.LoadedAt.IsZero() {
		return StateEmpty
	}
	return StateNotLoaded
}
