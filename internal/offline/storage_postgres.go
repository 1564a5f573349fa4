// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/cardbinder/internal/platform/database/schema"
	"github.com/taibuivan/cardbinder/internal/platform/dberr"
)

// PostgresStorage keeps partitions in the offline schema.
// The schema is created by the migrations under MIGRATION_PATH.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage wraps an existing pool. Close does not close the pool.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (storage *PostgresStorage) Partitions(context context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`,
		schema.OfflineCachePartition.Name, schema.OfflineCachePartition.Table, schema.OfflineCachePartition.Name,
	)

	rows, err := storage.pool.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_partitions")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, dberr.Wrap(err, "scan_partition")
		}
		names = append(names, name)
	}
	return names, dberr.Wrap(rows.Err(), "list_partitions")
}

// DropPartition removes the partition row; entries follow through ON DELETE CASCADE.
func (storage *PostgresStorage) DropPartition(context context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.OfflineCachePartition.Table, schema.OfflineCachePartition.Name,
	)

	_, err := storage.pool.Exec(context, query, name)
	return dberr.Wrap(err, "drop_partition")
}

func (storage *PostgresStorage) Get(context context.Context, partition, url string) (*Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2
	`,
		schema.OfflineCacheEntry.URL, schema.OfflineCacheEntry.Status, schema.OfflineCacheEntry.Header,
		schema.OfflineCacheEntry.Body, schema.OfflineCacheEntry.StoredAt, schema.OfflineCacheEntry.Seq,
		schema.OfflineCacheEntry.Table,
		schema.OfflineCacheEntry.Partition, schema.OfflineCacheEntry.URL,
	)

	entry := &Entry{}
	var header []byte
	err := storage.pool.QueryRow(context, query, partition, url).Scan(
		&entry.URL, &entry.Status, &header, &entry.Body, &entry.StoredAt, &entry.Seq,
	)
	if err != nil {
		err = dberr.Wrap(err, "get_entry")
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(header, &entry.Header); err != nil {
		entry.Header = http.Header{}
	}
	return entry, nil
}

/*
Put upserts an entry inside one transaction.

The partition row is created on first use. A replaced entry draws a new value
from the seq sequence, so it moves to the back of the eviction order.
*/
func (storage *PostgresStorage) Put(context context.Context, partition string, entry *Entry) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("postgres: encode header: %w", err)
	}

	transaction, err := storage.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(context)

	ensurePartition := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1) ON CONFLICT (%s) DO NOTHING`,
		schema.OfflineCachePartition.Table, schema.OfflineCachePartition.Name, schema.OfflineCachePartition.Name,
	)
	if _, err := transaction.Exec(context, ensurePartition, partition); err != nil {
		return dberr.Wrap(err, "ensure_partition")
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = nextval(pg_get_serial_sequence('%s', '%s'))
		RETURNING %s
	`,
		schema.OfflineCacheEntry.Table,
		schema.OfflineCacheEntry.Partition, schema.OfflineCacheEntry.URL, schema.OfflineCacheEntry.Status,
		schema.OfflineCacheEntry.Header, schema.OfflineCacheEntry.Body, schema.OfflineCacheEntry.StoredAt,
		schema.OfflineCacheEntry.Partition, schema.OfflineCacheEntry.URL,
		schema.OfflineCacheEntry.Status, schema.OfflineCacheEntry.Status,
		schema.OfflineCacheEntry.Header, schema.OfflineCacheEntry.Header,
		schema.OfflineCacheEntry.Body, schema.OfflineCacheEntry.Body,
		schema.OfflineCacheEntry.StoredAt, schema.OfflineCacheEntry.StoredAt,
		schema.OfflineCacheEntry.Seq, schema.OfflineCacheEntry.Table, schema.OfflineCacheEntry.Seq,
		schema.OfflineCacheEntry.Seq,
	)

	err = transaction.QueryRow(context, upsert,
		partition, entry.URL, entry.Status, header, entry.Body, entry.StoredAt,
	).Scan(&entry.Seq)
	if err != nil {
		return dberr.Wrap(err, "put_entry")
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres: failed to commit entry: %w", err)
	}
	return nil
}

func (storage *PostgresStorage) Delete(context context.Context, partition, url string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.OfflineCacheEntry.Table, schema.OfflineCacheEntry.Partition, schema.OfflineCacheEntry.URL,
	)

	_, err := storage.pool.Exec(context, query, partition, url)
	return dberr.Wrap(err, "delete_entry")
}

func (storage *PostgresStorage) Keys(context context.Context, partition string) ([]EntryMeta, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		schema.OfflineCacheEntry.URL, schema.OfflineCacheEntry.StoredAt, schema.OfflineCacheEntry.Seq,
		schema.OfflineCacheEntry.Table,
		schema.OfflineCacheEntry.Partition,
		schema.OfflineCacheEntry.Seq,
	)

	rows, err := storage.pool.Query(context, query, partition)
	if err != nil {
		return nil, dberr.Wrap(err, "list_keys")
	}
	defer rows.Close()

	var keys []EntryMeta
	for rows.Next() {
		var meta EntryMeta
		if err := rows.Scan(&meta.URL, &meta.StoredAt, &meta.Seq); err != nil {
			return nil, dberr.Wrap(err, "scan_key")
		}
		keys = append(keys, meta)
	}
	return keys, dberr.Wrap(rows.Err(), "list_keys")
}

// Close is a no-op; the pool is owned by the caller.
func (storage *PostgresStorage) Close() error { return nil }
