// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/offline"
)

/*
TestStorage_Conformance runs the same contract against every local backend.
*/
func TestStorage_Conformance(t *testing.T) {
	backends := map[string]func(t *testing.T) offline.Storage{
		"memory": func(t *testing.T) offline.Storage {
			return offline.NewMemoryStorage()
		},
		"sqlite": func(t *testing.T) offline.Storage {
			storage, err := offline.OpenSQLiteStorage(filepath.Join(t.TempDir(), "cache", "offline.db"))
			require.NoError(t, err)
			return storage
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			storage := open(t)
			t.Cleanup(func() { _ = storage.Close() })
			ctx := context.Background()
			stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			_, err := storage.Get(ctx, "json-data-v1", "a")
			assert.ErrorIs(t, err, offline.ErrEntryNotFound)

			entry := &offline.Entry{
				URL:      "a",
				Status:   http.StatusOK,
				Header:   http.Header{"Content-Type": []string{"application/json"}},
				Body:     []byte(`[1]`),
				StoredAt: stamp,
			}
			require.NoError(t, storage.Put(ctx, "json-data-v1", entry))
			require.NoError(t, storage.Put(ctx, "json-data-v1", &offline.Entry{URL: "b", Status: 200, Body: []byte("b"), StoredAt: stamp}))
			require.NoError(t, storage.Put(ctx, "card-images-v1", &offline.Entry{URL: "c", Status: 200, Body: []byte("c"), StoredAt: stamp}))

			got, err := storage.Get(ctx, "json-data-v1", "a")
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, got.Status)
			assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
			assert.Equal(t, []byte(`[1]`), got.Body)
			assert.True(t, stamp.Equal(got.StoredAt))

			// Replacing "a" moves it behind "b".
			require.NoError(t, storage.Put(ctx, "json-data-v1", &offline.Entry{URL: "a", Status: 200, Body: []byte(`[2]`), StoredAt: stamp.Add(time.Minute)}))

			keys, err := storage.Keys(ctx, "json-data-v1")
			require.NoError(t, err)
			require.Len(t, keys, 2)
			assert.Equal(t, "b", keys[0].URL)
			assert.Equal(t, "a", keys[1].URL)
			assert.Less(t, keys[0].Seq, keys[1].Seq)

			require.NoError(t, storage.Delete(ctx, "json-data-v1", "b"))
			require.NoError(t, storage.Delete(ctx, "json-data-v1", "missing"))

			names, err := storage.Partitions(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"card-images-v1", "json-data-v1"}, names)

			require.NoError(t, storage.DropPartition(ctx, "card-images-v1"))
			_, err = storage.Get(ctx, "card-images-v1", "c")
			assert.ErrorIs(t, err, offline.ErrEntryNotFound)

			names, err = storage.Partitions(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"json-data-v1"}, names)
		})
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline.db")
	ctx := context.Background()

	first, err := offline.OpenSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "card-images-v1", &offline.Entry{URL: "x", Status: 200, Body: []byte("png"), StoredAt: time.Now()}))
	require.NoError(t, first.Close())

	second, err := offline.OpenSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "card-images-v1", "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got.Body)
}
