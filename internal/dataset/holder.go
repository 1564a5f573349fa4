// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dataset

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/cardbinder/internal/card"
)

// ErrNotLoaded is returned while no load has completed yet.
var ErrNotLoaded = errors.New("dataset: not loaded")

// State is the lifecycle of the in-memory catalog.
type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateLoaded
	StateEmpty
)

func (state State) String() string {
	switch state {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	default:
		return "not_loaded"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (state State) MarshalText() ([]byte, error) {
	return []byte(state.String()), nil
}

// Snapshot is one immutable view of the catalog.
type Snapshot struct {
	State    State       `json:"state"`
	Cards    []card.Card `json:"-"`
	Count    int         `json:"count"`
	Sets     []string    `json:"sets,omitempty"`
	LoadedAt time.Time   `json:"loadedAt,omitzero"`
}

// # Holder

// Holder publishes the current catalog. Readers never block writers.
type Holder struct {
	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners []func([]card.Card)
}

// NewHolder returns a [Holder] in [StateNotLoaded].
func NewHolder() *Holder {
	holder := &Holder{}
	holder.current.Store(&Snapshot{State: StateNotLoaded})
	return holder
}

// Snapshot returns the current view.
func (holder *Holder) Snapshot() *Snapshot {
	return holder.current.Load()
}

/*
Cards returns the loaded catalog.

While a reload runs, the previous catalog stays visible.

Returns:
  - []card.Card: The current cards (shared, do not modify)
  - error: [ErrNotLoaded] before the first load, [ErrNoCards] when it ended empty
*/
func (holder *Holder) Cards() ([]card.Card, error) {
	snapshot := holder.current.Load()
	switch {
	case len(snapshot.Cards) > 0:
		return snapshot.Cards, nil
	case snapshot.State == StateEmpty:
		return nil, ErrNoCards
	default:
		return nil, ErrNotLoaded
	}
}

// Begin marks a load in progress, keeping the previous cards visible.
func (holder *Holder) Begin() {
	previous := holder.current.Load()
	next := *previous
	next.State = StateLoading
	holder.current.Store(&next)
}

// Publish installs a finished load and notifies every subscriber.
// An empty card list moves the holder to [StateEmpty].
func (holder *Holder) Publish(cards []card.Card, sets []string) {
	state := StateLoaded
	if len(cards) == 0 {
		state = StateEmpty
		cards = nil
	}

	holder.current.Store(&Snapshot{
		State:    state,
		Cards:    cards,
		Count:    len(cards),
		Sets:     slices.Clone(sets),
		LoadedAt: time.Now().UTC(),
	})

	holder.mu.Lock()
	listeners := slices.Clone(holder.listeners)
	holder.mu.Unlock()

	for _, listener := range listeners {
		listener(cards)
	}
}

// Subscribe registers fn to run after every publish, in registration order.
func (holder *Holder) Subscribe(fn func([]card.Card)) {
	holder.mu.Lock()
	holder.listeners = append(holder.listeners, fn)
	holder.mu.Unlock()
}
