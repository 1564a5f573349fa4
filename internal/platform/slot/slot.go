// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slot defines the single-value durable storage used by the state stores.

The collection and the filter state each persist one string under one name.
Redis backs them in production ([github.com/taibuivan/cardbinder/internal/platform/redis.Slot]);
[Memory] backs them in tests and when STATE_BACKEND=memory.
*/
package slot

import (
	"context"
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by a [Store] that refused a write for lack of space.
var ErrQuotaExceeded = errors.New("slot: storage quota exceeded")

// Store reads and writes one durable string value.
type Store interface {
	// Get returns the value and whether it has ever been written.
	Get(ctx context.Context) (string, bool, error)

	// Set overwrites the value.
	Set(ctx context.Context, value string) error
}

// # In-Memory Slot

// Memory is an in-process [Store].
type Memory struct {
	mu      sync.Mutex
	value   string
	written bool
	writes  int
	failure error
}

// NewMemory returns an empty [Memory] slot.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a [Memory] slot that already holds value.
func NewMemoryWith(value string) *Memory {
	return &Memory{value: value, written: true}
}

func (memory *Memory) Get(_ context.Context) (string, bool, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return memory.value, memory.written, nil
}

func (memory *Memory) Set(_ context.Context, value string) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	if memory.failure != nil {
		return memory.failure
	}
	memory.value = value
	memory.written = true
	memory.writes++
	return nil
}

// FailWith makes every following Set return err. Nil restores normal writes.
func (memory *Memory) FailWith(err error) {
	memory.mu.Lock()
	memory.failure = err
	memory.mu.Unlock()
}

// Writes returns how many Set calls succeeded.
func (memory *Memory) Writes() int {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return memory.writes
}
