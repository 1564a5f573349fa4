// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dataset

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// Prefetcher requests set files during idle time so the data cache stays warm.
type Prefetcher struct {
	fetcher *Fetcher
	usage   *UsageTracker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewPrefetcher creates a [Prefetcher] issuing at most rps requests per second.
// It returns nil when rps is not positive, which disables prefetching.
func NewPrefetcher(fetcher *Fetcher, usage *UsageTracker, rps float64, logger *slog.Logger) *Prefetcher {
	if rps <= 0 {
		return nil
	}
	return &Prefetcher{
		fetcher: fetcher,
		usage:   usage,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

/*
Run warms every set once, most used first, then returns.

Failures are logged at debug level and skipped. Warming does not count as
usage.

Returns:
  - int: The number of sets fetched successfully
*/
func (prefetcher *Prefetcher) Run(ctx context.Context, sets []string) int {
	if prefetcher == nil {
		return 0
	}

	ordered := sets
	if prefetcher.usage != nil {
		ordered = prefetcher.usage.Ranked(ctx, sets)
	}

	warmed := 0
	for _, set := range ordered {
		if err := prefetcher.limiter.Wait(ctx); err != nil {
			break
		}
		if _, err := prefetcher.fetcher.get(ctx, prefetcher.fetcher.SetURL(set)); err != nil {
			prefetcher.logger.DebugContext(ctx, "prefetch_failed", slog.String("set", set), slog.Any("error", err))
			continue
		}
		warmed++
	}

	prefetcher.logger.InfoContext(ctx, "prefetch_done", slog.Int("sets", len(ordered)), slog.Int("warmed", warmed))
	return warmed
}
