// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dataset_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/dataset"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setServer serves one card per set, failing the listed sets with a 500.
type setServer struct {
	failing map[string]bool
	bodies  map[string]string

	mu       sync.Mutex
	inFlight int
	peak     int
	hits     atomic.Int64
}

func (server *setServer) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	server.hits.Add(1)

	server.mu.Lock()
	server.inFlight++
	server.peak = max(server.peak, server.inFlight)
	server.mu.Unlock()

	defer func() {
		server.mu.Lock()
		server.inFlight--
		server.mu.Unlock()
	}()

	time.Sleep(2 * time.Millisecond)

	set := strings.TrimSuffix(strings.TrimPrefix(request.URL.Path, "/data/"), ".json")

	server.mu.Lock()
	failing := server.failing[set]
	server.mu.Unlock()

	if failing {
		http.Error(writer, "boom", http.StatusInternalServerError)
		return
	}
	if body, ok := server.bodies[set]; ok {
		_, _ = io.WriteString(writer, body)
		return
	}
	_, _ = fmt.Fprintf(writer, `[{"code":"%s-001","name":"card of %s","class":"CHARACTER"}]`, set, set)
}

func newFetcher(t *testing.T, handler http.Handler, batch int) *dataset.Fetcher {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)
	return dataset.NewFetcher(upstream.Client(), upstream.URL, batch, nil, discardLogger())
}

func TestDefaultSets(t *testing.T) {
	sets := dataset.DefaultSets()
	require.Len(t, sets, 45)
	assert.Equal(t, "EB01", sets[0])
	assert.Contains(t, sets, "OP12")
	assert.Contains(t, sets, "P")
	assert.Contains(t, sets, "PRB02")
	assert.Equal(t, "ST28", sets[len(sets)-1])
	assert.IsNonDecreasing(t, sets)
}

/*
TestLoadAll_PartialFailure checks that failing sets contribute nothing and the
rest load, sorted, with bounded concurrency.
*/
func TestLoadAll_PartialFailure(t *testing.T) {
	sets := dataset.DefaultSets()
	server := &setServer{failing: map[string]bool{"OP03": true, "ST10": true, "EB02": true}}
	fetcher := newFetcher(t, server, 6)

	cards, err := fetcher.LoadAll(context.Background(), sets)
	require.NoError(t, err)
	assert.Len(t, cards, 42)
	assert.Equal(t, int64(45), server.hits.Load())
	server.mu.Lock()
	assert.LessOrEqual(t, server.peak, 6)
	server.mu.Unlock()

	codes := make([]string, len(cards))
	for i, c := range cards {
		codes[i] = c.Code
	}
	assert.IsNonDecreasing(t, codes)
	assert.NotContains(t, codes, "OP03-001")
}

func TestLoadAll_AllFail(t *testing.T) {
	server := &setServer{failing: map[string]bool{"OP01": true, "OP02": true}}
	fetcher := newFetcher(t, server, 6)

	cards, err := fetcher.LoadAll(context.Background(), []string{"OP01", "OP02"})
	assert.ErrorIs(t, err, dataset.ErrNoCards)
	assert.Empty(t, cards)
}

func TestLoadAll_MalformedSet(t *testing.T) {
	server := &setServer{bodies: map[string]string{"OP02": `{"not":"an array"`}}
	fetcher := newFetcher(t, server, 2)

	cards, err := fetcher.LoadAll(context.Background(), []string{"OP01", "OP02", "OP03"})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "OP01-001", cards[0].Code)
	assert.Equal(t, "OP03-001", cards[1].Code)
}

func TestLoadAll_Cancelled(t *testing.T) {
	fetcher := newFetcher(t, &setServer{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.LoadAll(ctx, []string{"OP01", "OP02"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortByCode_StableForVariants(t *testing.T) {
	cards := []card.Card{
		{Code: "OP02-001", Name: "b"},
		{Code: "OP01-001", Name: "first print"},
		{Code: "OP01-001", Name: "alt art"},
		{Code: "EB01-001"},
	}
	dataset.SortByCode(cards)

	assert.Equal(t, "EB01-001", cards[0].Code)
	assert.Equal(t, "first print", cards[1].Name)
	assert.Equal(t, "alt art", cards[2].Name)
	assert.Equal(t, "OP02-001", cards[3].Code)
}

/*
TestLoader_Reload covers the holder states and subscriber notification.
*/
func TestLoader_Reload(t *testing.T) {
	server := &setServer{}
	fetcher := newFetcher(t, server, 6)
	holder := dataset.NewHolder()
	loader := dataset.NewLoader(fetcher, holder, []string{"OP01", "ST01"}, discardLogger())

	_, err := holder.Cards()
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)
	assert.Equal(t, dataset.StateNotLoaded, holder.Snapshot().State)

	var notified atomic.Int64
	holder.Subscribe(func(cards []card.Card) { notified.Store(int64(len(cards))) })

	require.NoError(t, loader.Reload(context.Background(), nil))
	assert.Equal(t, dataset.StateLoaded, holder.Snapshot().State)
	assert.Equal(t, int64(2), notified.Load())

	cards, err := holder.Cards()
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	server.mu.Lock()
	server.failing = map[string]bool{"OP01": true}
	server.mu.Unlock()

	err = loader.Reload(context.Background(), []string{"OP01"})
	assert.ErrorIs(t, err, dataset.ErrNoCards)
	assert.Equal(t, dataset.StateEmpty, holder.Snapshot().State)
	assert.Equal(t, int64(0), notified.Load())

	_, err = holder.Cards()
	assert.ErrorIs(t, err, dataset.ErrNoCards)
}

func TestUsageTracker_Ranked(t *testing.T) {
	tracker := dataset.NewUsageTracker(nil, discardLogger())
	ctx := context.Background()

	tracker.Record(ctx, "ST01")
	tracker.Record(ctx, "OP05")
	tracker.Record(ctx, "OP05")

	assert.Equal(t, []string{"OP05", "ST01", "EB01", "OP01"}, tracker.Ranked(ctx, []string{"EB01", "OP01", "ST01", "OP05"}))
}

func TestPrefetcher_Run(t *testing.T) {
	server := &setServer{failing: map[string]bool{"OP02": true}}
	fetcher := newFetcher(t, server, 6)
	usage := dataset.NewUsageTracker(nil, discardLogger())

	assert.Nil(t, dataset.NewPrefetcher(fetcher, usage, 0, discardLogger()))

	prefetcher := dataset.NewPrefetcher(fetcher, usage, 1000, discardLogger())
	warmed := prefetcher.Run(context.Background(), []string{"OP01", "OP02", "OP03"})
	assert.Equal(t, 2, warmed)
	assert.Equal(t, int64(3), server.hits.Load())
	assert.Empty(t, usage.Counts(context.Background()))
}

/*
TestLocalOrigin reads set files from a directory through the file transport.
*/
func TestLocalOrigin(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "OP01.json"),
		[]byte(`[{"code":"OP01-001","name":"Zoro","Class":"LEADER"}]`), 0o644))

	origin := "file://" + filepath.ToSlash(root)
	assert.Equal(t, root, dataset.LocalRoot(origin))
	assert.Equal(t, "", dataset.LocalRoot("https://example.com"))

	client, base, err := dataset.ClientFor(origin, http.DefaultTransport)
	require.NoError(t, err)

	fetcher := dataset.NewFetcher(client, base, 6, nil, discardLogger())
	cards, err := fetcher.LoadAll(context.Background(), []string{"OP01", "OP02"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "LEADER", cards[0].Class)
}

func TestWatcher_DebouncedReload(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int64
	watcher := dataset.NewWatcher(dir, 50*time.Millisecond, func(context.Context) { reloads.Add(1) }, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "OP01.json"), []byte(fmt.Sprintf("[%d]", i)), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return reloads.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), reloads.Load())

	cancel()
	assert.NoError(t, <-done)
}
