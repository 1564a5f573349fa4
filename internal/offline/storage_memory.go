// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps partitions in process memory.
type MemoryStorage struct {
	mu         sync.RWMutex
	seq        int64
	partitions map[string]map[string]*Entry
}

// NewMemoryStorage returns an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{partitions: make(map[string]map[string]*Entry)}
}

func (storage *MemoryStorage) Partitions(_ context.Context) ([]string, error) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()

	names := make([]string, 0, len(storage.partitions))
	for name := range storage.partitions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (storage *MemoryStorage) DropPartition(_ context.Context, name string) error {
	storage.mu.Lock()
	delete(storage.partitions, name)
	storage.mu.Unlock()
	return nil
}

func (storage *MemoryStorage) Get(_ context.Context, partition, url string) (*Entry, error) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()

	entry, ok := storage.partitions[partition][url]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return cloneEntry(entry), nil
}

func (storage *MemoryStorage) Put(_ context.Context, partition string, entry *Entry) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	entries, ok := storage.partitions[partition]
	if !ok {
		entries = make(map[string]*Entry)
		storage.partitions[partition] = entries
	}

	storage.seq++
	stored := cloneEntry(entry)
	stored.Seq = storage.seq
	entry.Seq = stored.Seq
	entries[entry.URL] = stored
	return nil
}

func (storage *MemoryStorage) Delete(_ context.Context, partition, url string) error {
	storage.mu.Lock()
	delete(storage.partitions[partition], url)
	storage.mu.Unlock()
	return nil
}

func (storage *MemoryStorage) Keys(_ context.Context, partition string) ([]EntryMeta, error) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()

	entries := storage.partitions[partition]
	keys := make([]EntryMeta, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, EntryMeta{URL: entry.URL, StoredAt: entry.StoredAt, Seq: entry.Seq})
	}
	slices.SortFunc(keys, func(a, b EntryMeta) int { return cmp.Compare(a.Seq, b.Seq) })
	return keys, nil
}

func (storage *MemoryStorage) Close() error { return nil }

func cloneEntry(entry *Entry) *Entry {
	clone := *entry
	clone.Header = entry.Header.Clone()
	clone.Body = bytes.Clone(entry.Body)
	return &clone
}
