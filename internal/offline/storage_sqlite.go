// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/taibuivan/cardbinder/internal/platform/dberr"
)

// sqliteSchema is applied on every open. AUTOINCREMENT keeps seq strictly
// increasing, and INSERT OR REPLACE re-inserts a replaced row with a new seq.
//
//go:embed sqlite_schema.sql
var sqliteSchema string

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// SQLiteStorage keeps partitions in a single local database file.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens (or creates) the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// One writer at a time; an in-memory database also lives on a single connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Ping checks that the database file is still reachable.
func (storage *SQLiteStorage) Ping(ctx context.Context) error {
	return storage.db.PingContext(ctx)
}

func (storage *SQLiteStorage) Partitions(ctx context.Context) ([]string, error) {
	rows, err := storage.db.QueryContext(ctx, `SELECT name FROM cache_partition ORDER BY name`)
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

func (storage *SQLiteStorage) DropPartition(ctx context.Context, name string) error {
	tx, err := storage.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entry WHERE partition = ?`, name); err != nil {
		return dberr.Wrap(err, "drop_entries")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_partition WHERE name = ?`, name); err != nil {
		return dberr.Wrap(err, "drop_partition")
	}
	return tx.Commit()
}

func (storage *SQLiteStorage) Get(ctx context.Context, partition, url string) (*Entry, error) {
	entry := &Entry{}
	var header string
	var storedAt int64

	err := storage.db.QueryRowContext(ctx,
		`SELECT url, status, header, body, storedat, seq FROM cache_entry WHERE partition = ? AND url = ?`,
		partition, url,
	).Scan(&entry.URL, &entry.Status, &header, &entry.Body, &storedAt, &entry.Seq)
	if err != nil {
		err = dberr.Wrap(err, "get_entry")
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	entry.StoredAt = time.Unix(0, storedAt).UTC()
	if err := json.Unmarshal([]byte(header), &entry.Header); err != nil {
		entry.Header = http.Header{}
	}
	return entry, nil
}

func (storage *SQLiteStorage) Put(ctx context.Context, partition string, entry *Entry) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("sqlite: encode header: %w", err)
	}

	tx, err := storage.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO cache_partition (name, createdat) VALUES (?, ?)`,
		partition, time.Now().UnixNano(),
	); err != nil {
		return dberr.Wrap(err, "ensure_partition")
	}

	result, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entry (partition, url, status, header, body, storedat) VALUES (?, ?, ?, ?, ?, ?)`,
		partition, entry.URL, entry.Status, string(header), entry.Body, entry.StoredAt.UnixNano(),
	)
	if err != nil {
		return dberr.Wrap(err, "put_entry")
	}

	if seq, err := result.LastInsertId(); err == nil {
		entry.Seq = seq
	}
	return tx.Commit()
}

func (storage *SQLiteStorage) Delete(ctx context.Context, partition, url string) error {
	_, err := storage.db.ExecContext(ctx, `DELETE FROM cache_entry WHERE partition = ? AND url = ?`, partition, url)
	return dberr.Wrap(err, "delete_entry")
}

func (storage *SQLiteStorage) Keys(ctx context.Context, partition string) ([]EntryMeta, error) {
	rows, err := storage.db.QueryContext(ctx,
		`SELECT url, storedat, seq FROM cache_entry WHERE partition = ? ORDER BY seq ASC`, partition,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "list_keys")
	}
	defer rows.Close()

	var keys []EntryMeta
	for rows.Next() {
		var meta EntryMeta
		var storedAt int64
		if err := rows.Scan(&meta.URL, &storedAt, &meta.Seq); err != nil {
			return nil, dberr.Wrap(err, "scan_key")
		}
		meta.StoredAt = time.Unix(0, storedAt).UTC()
		keys = append(keys, meta)
	}
	return keys, dberr.Wrap(rows.Err(), "list_keys")
}

func (storage *SQLiteStorage) Close() error {
	return storage.db.Close()
}
