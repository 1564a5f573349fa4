// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dataset

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// CounterStore is a durable map of named counters.
// [github.com/taibuivan/cardbinder/internal/platform/redis.Counter] implements it.
type CounterStore interface {
	Incr(ctx context.Context, field string) error
	All(ctx context.Context) (map[string]int64, error)
}

// UsageTracker counts set accesses so idle prefetch can warm popular sets first.
// It is telemetry only; nothing depends on it for correctness.
type UsageTracker struct {
	counter CounterStore
	logger  *slog.Logger

	mu    sync.Mutex
	local map[string]int64
}

// NewUsageTracker creates a tracker. A nil counter keeps counts in memory only.
func NewUsageTracker(counter CounterStore, logger *slog.Logger) *UsageTracker {
	return &UsageTracker{counter: counter, logger: logger, local: make(map[string]int64)}
}

// Record counts one access to set.
func (tracker *UsageTracker) Record(ctx context.Context, set string) {
	tracker.mu.Lock()
	tracker.local[set]++
	tracker.mu.Unlock()

	if tracker.counter == nil {
		return
	}
	if err := tracker.counter.Incr(ctx, set); err != nil {
		tracker.logger.DebugContext(ctx, "usage_record_failed", slog.String("set", set), slog.Any("error", err))
	}
}

// Counts returns the durable counts, or the in-memory ones when unavailable.
func (tracker *UsageTracker) Counts(ctx context.Context) map[string]int64 {
	if tracker.counter != nil {
		counts, err := tracker.counter.All(ctx)
		if err == nil {
			return counts
		}
		tracker.logger.DebugContext(ctx, "usage_read_failed", slog.Any("error", err))
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return maps.Clone(tracker.local)
}

// Ranked orders sets by descending use; ties keep their input order.
func (tracker *UsageTracker) Ranked(ctx context.Context, sets []string) []string {
	counts := tracker.Counts(ctx)

	ranked := slices.Clone(sets)
	slices.SortStableFunc(ranked, func(a, b string) int {
		switch {
		case counts[a] > counts[b]:
			return -1
		case counts[a] < counts[b]:
			return 1
		default:
			return 0
		}
	})
	return ranked
}
