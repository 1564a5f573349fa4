// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package card

import (
	"strings"
	"sync"
)

// ClassLeader is the class value that marks a leader card.
const ClassLeader = "LEADER"

// Index answers per-code lookups against the loaded dataset.
type Index struct {
	mu      sync.RWMutex
	byCode  map[string]Card
	leaders map[string]bool
}

// NewIndex builds an [Index] over the given cards.
func NewIndex(cards []Card) *Index {
	index := &Index{}
	index.Reset(cards)
	return index
}

// Reset rebuilds the index and drops every memoized answer.
// The first card carrying a code wins, like the catalog's own lookup.
func (index *Index) Reset(cards []Card) {
	byCode := make(map[string]Card, len(cards))
	for _, c := range cards {
		if _, seen := byCode[c.Code]; !seen {
			byCode[c.Code] = c
		}
	}

	index.mu.Lock()
	index.byCode = byCode
	index.leaders = make(map[string]bool)
	index.mu.Unlock()
}

// Lookup returns the first loaded card with the given code.
func (index *Index) Lookup(code string) (Card, bool) {
	index.mu.RLock()
	defer index.mu.RUnlock()
	c, ok := index.byCode[code]
	return c, ok
}

// IsLeader reports whether the card with this code has the leader class.
// Unknown codes are not leaders.
func (index *Index) IsLeader(code string) bool {
	index.mu.RLock()
	answer, ok := index.leaders[code]
	index.mu.RUnlock()
	if ok {
		return answer
	}

	index.mu.Lock()
	defer index.mu.Unlock()

	c, found := index.byCode[code]
	answer = found && strings.EqualFold(strings.TrimSpace(c.Class), ClassLeader)
	index.leaders[code] = answer
	return answer
}
