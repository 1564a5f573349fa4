// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"context"
	"errors"
)

// ErrEntryNotFound is returned by [Storage.Get] for an uncached URL.
var ErrEntryNotFound = errors.New("offline: entry not found")

// Storage persists named partitions of cache entries.
//
// Implementations: [MemoryStorage], [SQLiteStorage], [PostgresStorage].
type Storage interface {
	// Partitions lists every partition that holds or has held entries.
	Partitions(ctx context.Context) ([]string, error)

	// DropPartition deletes a partition and all of its entries.
	DropPartition(ctx context.Context, name string) error

	// Get returns the entry for url, or [ErrEntryNotFound].
	Get(ctx context.Context, partition, url string) (*Entry, error)

	// Put stores entry, replacing any previous one for the same URL.
	// A replacement counts as a fresh insertion and receives a new Seq.
	Put(ctx context.Context, partition string, entry *Entry) error

	// Delete removes the entry for url. Missing entries are not an error.
	Delete(ctx context.Context, partition, url string) error

	// Keys lists the partition's entries, oldest insertion first.
	Keys(ctx context.Context, partition string) ([]EntryMeta, error)

	// Close releases the underlying connection.
	Close() error
}
