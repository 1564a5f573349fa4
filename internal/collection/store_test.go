// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/collection"
	"github.com/taibuivan/cardbinder/internal/platform/slot"
)

const testInterval = 30 * time.Millisecond

func newStore(t *testing.T, memory *slot.Memory) *collection.Store {
	t.Helper()
	store := collection.NewStore(memory, testInterval, slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.Load(context.Background())
	return store
}

/*
TestStore_SetQuantity checks clamping and deletion on zero.
*/
func TestStore_SetQuantity(t *testing.T) {
	store := newStore(t, slot.NewMemory())
	key := "OP01-001\x1fhttps://en.onepiece-cardgame.com/images/OP01-001.png"

	assert.Equal(t, 0, store.SetQuantity(key, -5))
	assert.Equal(t, 0, store.Quantity(key))
	assert.NotContains(t, store.Entries(), key)

	assert.Equal(t, 3, store.SetQuantity(key, 3))
	assert.Equal(t, 3, store.Quantity(key))

	assert.Equal(t, 0, store.SetQuantity(key, 0))
	assert.NotContains(t, store.Entries(), key)

	assert.Equal(t, 2, store.SetQuantity(key, "2"))
	assert.Equal(t, 0, store.SetQuantity(key, "lots"))
	assert.Equal(t, 0, store.Len())
}

/*
TestStore_ThrottledWrites checks that a burst of mutations produces one write.
*/
func TestStore_ThrottledWrites(t *testing.T) {
	memory := slot.NewMemory()
	store := newStore(t, memory)

	for i := range 50 {
		store.SetQuantity(fmt.Sprintf("OP01-%03d", i), i+1)
	}
	assert.Equal(t, 0, memory.Writes())

	require.Eventually(t, func() bool { return memory.Writes() == 1 }, time.Second, 5*time.Millisecond)

	// Nothing else is pending.
	time.Sleep(3 * testInterval)
	assert.Equal(t, 1, memory.Writes())

	payload, ok, err := memory.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	decoded, err := collection.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, store.Entries(), decoded)
}

/*
TestStore_LoadSurvivesRestart checks the persisted map is read back.
*/
func TestStore_LoadSurvivesRestart(t *testing.T) {
	memory := slot.NewMemory()

	first := newStore(t, memory)
	first.SetQuantity("OP01-001", 4)
	first.Flush(context.Background())

	second := newStore(t, memory)
	assert.Equal(t, 4, second.Quantity("OP01-001"))
}

func TestStore_LoadCorruptIsEmpty(t *testing.T) {
	store := newStore(t, slot.NewMemoryWith(collection.Marker+"~q"))
	assert.Equal(t, 0, store.Len())
}

/*
TestStore_QuotaFailure checks that a refused write is logged and memory wins.
*/
func TestStore_QuotaFailure(t *testing.T) {
	memory := slot.NewMemory()
	memory.FailWith(fmt.Errorf("%w: OOM command not allowed", slot.ErrQuotaExceeded))

	var logs bytes.Buffer
	store := collection.NewStore(memory, testInterval, slog.New(slog.NewTextHandler(&logs, nil)))
	store.Load(context.Background())

	store.SetQuantity("OP01-001", 2)
	store.Flush(context.Background())

	assert.Equal(t, 2, store.Quantity("OP01-001"))
	assert.Equal(t, 0, memory.Writes())
	assert.Contains(t, logs.String(), "collection_quota_exceeded")

	memory.FailWith(nil)
	store.SetQuantity("OP01-002", 1)
	require.Eventually(t, func() bool { return memory.Writes() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStore_CloseFlushesPending(t *testing.T) {
	memory := slot.NewMemory()
	store := collection.NewStore(memory, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.Load(context.Background())

	store.Close(context.Background())
	assert.Equal(t, 0, memory.Writes())

	store.SetQuantity("OP01-001", 1)
	store.Close(context.Background())
	assert.Equal(t, 1, memory.Writes())
}

/*
TestStore_MigrateLegacy checks bare-code keys move to full card keys.
*/
func TestStore_MigrateLegacy(t *testing.T) {
	memory := slot.NewMemoryWith(`{"OP01-001":"2","OP01-999":1}`)
	store := newStore(t, memory)

	resolver := card.NewResolver("https://en.onepiece-cardgame.com/")
	cards := []card.Card{
		{Code: "OP01-001", ImageLinks: []string{"/images/OP01-001.png"}},
		{Code: "OP01-001", ImageLinks: []string{"/images/OP01-001_p1.png"}},
	}
	fullKey := resolver.Key(cards[0])
	store.SetQuantity(fullKey, 1)

	migrated := store.MigrateLegacy(cards, resolver.Key)
	assert.Equal(t, 1, migrated)
	assert.Equal(t, 3, store.Quantity(fullKey))
	assert.Equal(t, 0, store.Quantity("OP01-001"))
	assert.Equal(t, 1, store.Quantity("OP01-999"))

	assert.Equal(t, 0, store.MigrateLegacy(cards, resolver.Key))
}
