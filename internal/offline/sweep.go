// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/cardbinder/pkg/slice"
)

// SweepResult reports what one sweep removed from a partition.
type SweepResult struct {
	Partition string `json:"partition"`
	Evicted   int    `json:"evicted"`
	Expired   int    `json:"expired"`
	Remaining int    `json:"remaining"`
}

/*
Sweep enforces every bounded partition's policy.

Both rules run on every sweep, in order:
 1. Count eviction: the oldest insertions are deleted until MaxEntries remain.
 2. Age eviction: entries written more than MaxAge ago are deleted.

A failing partition is logged and skipped.
*/
func (manager *Manager) Sweep(ctx context.Context) []SweepResult {
	var results []SweepResult
	for _, policy := range Policies() {
		if !policy.Bounded() {
			continue
		}

		result, err := manager.sweepPartition(ctx, policy)
		if err != nil {
			manager.logger.WarnContext(ctx, "offline_sweep_failed",
				slog.String("partition", policy.Name),
				slog.Any("error", err),
			)
			continue
		}
		results = append(results, result)
	}
	return results
}

func (manager *Manager) sweepPartition(ctx context.Context, policy Policy) (SweepResult, error) {
	result := SweepResult{Partition: policy.Name}

	keys, err := manager.storage.Keys(ctx, policy.Name)
	if err != nil {
		return result, fmt.Errorf("list keys: %w", err)
	}

	if policy.MaxEntries > 0 && len(keys) > policy.MaxEntries {
		excess := len(keys) - policy.MaxEntries
		for _, meta := range keys[:excess] {
			if err := manager.storage.Delete(ctx, policy.Name, meta.URL); err != nil {
				return result, fmt.Errorf("evict %s: %w", meta.URL, err)
			}
			result.Evicted++
		}
		keys = keys[excess:]
	}

	if policy.MaxAge > 0 {
		now := manager.now()
		kept := keys[:0]
		for _, meta := range keys {
			if now.Sub(meta.StoredAt) > policy.MaxAge {
				if err := manager.storage.Delete(ctx, policy.Name, meta.URL); err != nil {
					return result, fmt.Errorf("expire %s: %w", meta.URL, err)
				}
				result.Expired++
				continue
			}
			kept = append(kept, meta)
		}
		keys = kept
	}

	result.Remaining = len(keys)
	if result.Evicted > 0 || result.Expired > 0 {
		manager.logger.InfoContext(ctx, "offline_partition_swept",
			slog.String("partition", policy.Name),
			slog.Int("evicted", result.Evicted),
			slog.Int("expired", result.Expired),
			slog.Int("remaining", result.Remaining),
		)
	}
	return result, nil
}

/*
Activate prepares storage for this version of the partitions.

Every partition whose name is not recognized (older versions, foreign data)
is deleted, then a sweep runs.

Returns:
  - []string: The dropped partition names
  - error: The partition list could not be read
*/
func (manager *Manager) Activate(ctx context.Context) ([]string, error) {
	names, err := manager.storage.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("offline: list partitions: %w", err)
	}

	var dropped []string
	for _, name := range slice.Filter(names, func(name string) bool { return !Recognized(name) }) {
		if err := manager.storage.DropPartition(ctx, name); err != nil {
			manager.logger.WarnContext(ctx, "offline_partition_drop_failed", slog.String("partition", name), slog.Any("error", err))
			continue
		}
		dropped = append(dropped, name)
	}

	if len(dropped) > 0 {
		manager.logger.InfoContext(ctx, "offline_partitions_dropped", slog.Any("partitions", dropped))
	}

	manager.Sweep(ctx)
	return dropped, nil
}

// Run sweeps every interval until ctx is done.
func (manager *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.Sweep(ctx)
		}
	}
}

// PartitionStats describes one partition for the status endpoint.
type PartitionStats struct {
	Name       string        `json:"name"`
	Entries    int           `json:"entries"`
	MaxEntries int           `json:"maxEntries,omitempty"`
	MaxAge     time.Duration `json:"maxAgeNs,omitempty"`
	Oldest     time.Time     `json:"oldest,omitzero"`
}

// Stats returns the entry count of every recognized partition.
func (manager *Manager) Stats(ctx context.Context) ([]PartitionStats, error) {
	stats := make([]PartitionStats, 0, len(Policies()))
	for _, policy := range Policies() {
		keys, err := manager.storage.Keys(ctx, policy.Name)
		if err != nil {
			return nil, fmt.Errorf("offline: stats %s: %w", policy.Name, err)
		}

		item := PartitionStats{
			Name:       policy.Name,
			Entries:    len(keys),
			MaxEntries: policy.MaxEntries,
			MaxAge:     policy.MaxAge,
		}
		for _, meta := range keys {
			if item.Oldest.IsZero() || meta.StoredAt.Before(item.Oldest) {
				item.Oldest = meta.StoredAt
			}
		}
		stats = append(stats, item)
	}
	return stats, nil
}
