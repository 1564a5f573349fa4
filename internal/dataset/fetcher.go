// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package dataset loads the card catalog from per-set JSON files.

A load fetches every set in small concurrent batches, tolerates individual
failures, sorts the merged result by code and publishes it atomically into a
[Holder]. Consumers never observe a partially loaded catalog.

Set files are read over HTTP ({origin}/data/{SET}.json), normally through the
offline cache manager, or straight from a local directory for file:// origins.
*/
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

// ErrNoCards is returned when every set failed or came back empty.
var ErrNoCards = errors.New("dataset: no cards loaded")

// maxSetFileBytes guards against a runaway response body.
const maxSetFileBytes = 32 << 20

// localHost is the placeholder host used for file:// origins.
const localHost = "file://localhost"

// # Fetcher

// Fetcher reads set files and merges them into one sorted catalog.
type Fetcher struct {
	client    *http.Client
	base      string
	batchSize int
	usage     *UsageTracker
	logger    *slog.Logger
}

/*
NewFetcher creates a [Fetcher].

Parameters:
  - client: *http.Client (see [ClientFor])
  - base: string (origin that serves /data/{SET}.json)
  - batchSize: int (concurrent fetches per batch, defaults when < 1)
  - usage: *UsageTracker (optional, records each set access)
  - logger: *slog.Logger
*/
func NewFetcher(client *http.Client, base string, batchSize int, usage *UsageTracker, logger *slog.Logger) *Fetcher {
	if batchSize < 1 {
		batchSize = constants.DefaultBatchSize
	}
	return &Fetcher{
		client:    client,
		base:      strings.TrimRight(base, "/"),
		batchSize: batchSize,
		usage:     usage,
		logger:    logger,
	}
}

/*
ClientFor builds the HTTP client used to read set files from origin.

A file:// origin is served from the local directory through
[http.NewFileTransport]; anything else goes through network (normally the
offline cache manager).

Returns:
  - *http.Client: The client
  - string: The base URL to hand to [NewFetcher]
  - error: origin is not a valid URL
*/
func ClientFor(origin string, network http.RoundTripper) (*http.Client, string, error) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return nil, "", fmt.Errorf("dataset: parse origin: %w", err)
	}

	if parsed.Scheme == "file" {
		root := http.Dir(parsed.Path)
		return &http.Client{Transport: http.NewFileTransport(root)}, localHost, nil
	}

	return &http.Client{Transport: network}, origin, nil
}

// SetURL returns the URL of one set file.
func (fetcher *Fetcher) SetURL(set string) string {
	return fetcher.base + "/data/" + url.PathEscape(set) + ".json"
}

// LocalRoot returns the directory behind a file:// origin, or "".
func LocalRoot(origin string) string {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme != "file" {
		return ""
	}
	return parsed.Path
}

/*
FetchSet reads and parses one set file.

Returns:
  - []card.Card: The normalized cards of the set
  - error: Transport failure, non-2xx status or malformed JSON
*/
func (fetcher *Fetcher) FetchSet(ctx context.Context, set string) ([]card.Card, error) {
	if fetcher.usage != nil {
		fetcher.usage.Record(ctx, set)
	}

	body, err := fetcher.get(ctx, fetcher.SetURL(set))
	if err != nil {
		return nil, err
	}

	cards, err := card.ParseSet(body)
	if err != nil {
		return nil, fmt.Errorf("dataset: set %s: %w", set, err)
	}
	return cards, nil
}

func (fetcher *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := fetcher.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("dataset: get %s: %w", target, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil, fmt.Errorf("dataset: get %s: status %d", target, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxSetFileBytes))
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", target, err)
	}
	return body, nil
}

/*
LoadAll fetches every set and returns the merged, sorted catalog.

Description: Sets are fetched in batches of the configured size. Each batch
runs concurrently and is fully awaited before the next one starts, with a
scheduler yield in between. A set that fails contributes nothing and is
logged; the load carries on.

Returns:
  - []card.Card: Every card, sorted by code with locale-aware collation
  - error: [ErrNoCards] when nothing was loaded, or the context error
*/
func (fetcher *Fetcher) LoadAll(ctx context.Context, sets []string) ([]card.Card, error) {
	start := time.Now()
	results := make([][]card.Card, len(sets))
	failed := 0

	for offset := 0; offset < len(sets); offset += fetcher.batchSize {
		end := min(offset+fetcher.batchSize, len(sets))

		var group errgroup.Group
		failures := make([]bool, end-offset)
		for i := offset; i < end; i++ {
			set := sets[i]
			group.Go(func() error {
				cards, err := fetcher.FetchSet(ctx, set)
				if err != nil {
					fetcher.logger.WarnContext(ctx, "dataset_set_failed",
						slog.String("set", set),
						slog.Any("error", err),
					)
					failures[i-offset] = true
					return nil
				}
				results[i] = cards
				return nil
			})
		}
		_ = group.Wait()

		for _, f := range failures {
			if f {
				failed++
			}
		}

		// Let the rest of the process breathe between batches.
		runtime.Gosched()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var merged []card.Card
	for _, cards := range results {
		merged = append(merged, cards...)
	}
	SortByCode(merged)

	fetcher.logger.InfoContext(ctx, "dataset_loaded",
		slog.Int("sets", len(sets)),
		slog.Int("failed_sets", failed),
		slog.Int("cards", len(merged)),
		slog.Duration("elapsed", time.Since(start)),
	)

	if len(merged) == 0 {
		return nil, ErrNoCards
	}
	return merged, nil
}

// SortByCode orders cards by code with locale-aware collation.
// Cards sharing a code keep their relative order.
func SortByCode(cards []card.Card) {
	collator := collate.New(language.Und)
	slices.SortStableFunc(cards, func(a, b card.Card) int {
		return collator.CompareString(a.Code, b.Code)
	})
}
