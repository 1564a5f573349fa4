// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// the sentinel errors of the storage callers.
package dberr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a queried row doesn't exist, for both pgx and database/sql.
var ErrNotFound = errors.New("dberr: row not found")

// Wrap inspects a database error and classifies it.
//
// Missing rows become [ErrNotFound]; everything else is annotated with the
// failed action and kept in the chain for logging.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	return fmt.Errorf("%s: %w", action, err)
}
