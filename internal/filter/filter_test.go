// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package filter_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/filter"
	"github.com/taibuivan/cardbinder/internal/platform/slot"
)

func fixture() []card.Card {
	return []card.Card{
		{Code: "OP01-001", Name: "Roronoa Zoro", Category: "LEADER", Colors: []string{"Red"}, Rarity: "L", Attributes: []string{"Slash"}, Counter: "-", Features: []string{"Supernovas"}, Sets: []string{"OP01"}},
		{Code: "OP01-024", Name: "Monkey.D.Luffy", Category: "CHARACTER", Colors: []string{"Green"}, Rarity: "SR", Attributes: []string{"Strike"}, Counter: "2000", Text: "Give up to 1 of your opponent's Characters −2000 power."},
		{Code: "OP02-013", Name: "Portgas.D.Ace", Category: "CHARACTER", Colors: []string{"Red", "Green"}, Rarity: "SR", Counter: "1000", Trigger: "Play this card."},
		{Code: "DON-001", Name: "DON!! Card", Category: "DON"},
	}
}

func codes(cards []card.Card) []string {
	result := make([]string, 0, len(cards))
	for _, c := range cards {
		result = append(result, c.Code)
	}
	return result
}

func TestVisible_Search(t *testing.T) {
	cards := fixture()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty", "", []string{"OP01-001", "OP01-024", "OP02-013", "DON-001"}},
		{"below threshold", "on", []string{"OP01-001", "OP01-024", "OP02-013", "DON-001"}},
		{"name fragment", "luf", []string{"OP01-024"}},
		{"case insensitive", "LUF", []string{"OP01-024"}},
		{"code", "op02", []string{"OP02-013"}},
		{"trigger", "play this", []string{"OP02-013"}},
		{"feature", "supernova", []string{"OP01-001"}},
		{"hyphen matches minus sign", "-2000", []string{"OP01-024"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filter.Visible(cards, tt.query, filter.DefaultState())
			assert.Equal(t, tt.want, codes(got))
		})
	}
}

func TestVisible_ColorFacet(t *testing.T) {
	cards := fixture()

	state := filter.DefaultState()
	state[filter.GroupColor] = filter.GroupState{All: false, Values: []string{}}
	assert.Equal(t, []string{"DON-001"}, codes(filter.Visible(cards, "", state)))

	state[filter.GroupColor] = filter.GroupState{All: false, Values: []string{"green"}}
	assert.Equal(t, []string{"OP01-024", "OP02-013"}, codes(filter.Visible(cards, "", state)))

	// All wins over explicit values.
	state[filter.GroupColor] = filter.GroupState{All: true, Values: []string{"Purple"}}
	assert.Len(t, filter.Visible(cards, "", state), 4)
}

func TestVisible_OtherFacets(t *testing.T) {
	cards := fixture()

	tests := []struct {
		name  string
		group filter.Group
		state filter.GroupState
		want  []string
	}{
		{"rarity", filter.GroupRarity, filter.GroupState{Values: []string{"SR"}}, []string{"OP01-024", "OP02-013"}},
		{"type", filter.GroupType, filter.GroupState{Values: []string{"leader", "don"}}, []string{"OP01-001", "DON-001"}},
		{"attribute", filter.GroupAttribute, filter.GroupState{Values: []string{"slash"}}, []string{"OP01-001"}},
		{"counter yes", filter.GroupCounter, filter.GroupState{Values: []string{filter.PresenceYes}}, []string{"OP01-024", "OP02-013"}},
		{"counter no", filter.GroupCounter, filter.GroupState{Values: []string{filter.PresenceNo}}, []string{"OP01-001", "DON-001"}},
		{"trigger yes", filter.GroupTrigger, filter.GroupState{Values: []string{filter.PresenceYes}}, []string{"OP02-013"}},
		{"rarity narrowed to nothing", filter.GroupRarity, filter.GroupState{Values: []string{}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := filter.DefaultState()
			state[tt.group] = tt.state
			assert.Equal(t, tt.want, codes(filter.Visible(cards, "", state)))
		})
	}
}

func TestVisible_SearchAndFacets(t *testing.T) {
	state := filter.DefaultState()
	state[filter.GroupColor] = filter.GroupState{Values: []string{"Red"}}

	assert.Equal(t, []string{"OP02-013"}, codes(filter.Visible(fixture(), "portgas", state)))
	assert.Empty(t, filter.Visible(fixture(), "luffy", state))
}

func TestState_Normalize(t *testing.T) {
	state := filter.State{
		filter.GroupRarity: {All: false, Values: nil},
		"unknown":          {All: false},
	}

	normalized := state.Normalize()
	assert.Len(t, normalized, len(filter.Groups()))
	assert.NotContains(t, normalized, filter.Group("unknown"))
	assert.Equal(t, filter.GroupState{All: false, Values: []string{}}, normalized[filter.GroupRarity])
	assert.True(t, normalized[filter.GroupColor].All)

	assert.Error(t, state.Validate())
	assert.NoError(t, filter.DefaultState().Validate())
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	memory := slot.NewMemory()

	store := filter.NewStore(memory, logger)
	store.Load(ctx)
	assert.Equal(t, filter.DefaultState(), store.State())

	wanted := filter.DefaultState()
	wanted[filter.GroupColor] = filter.GroupState{Values: []string{"Red"}}
	_, err := store.Set(ctx, wanted)
	require.NoError(t, err)
	assert.Equal(t, 1, memory.Writes())

	restored := filter.NewStore(memory, logger)
	restored.Load(ctx)
	assert.Equal(t, wanted, restored.State())

	_, err = store.Set(ctx, filter.State{"shape": {}})
	assert.Error(t, err)

	// A failed write keeps the new state in memory.
	memory.FailWith(fmt.Errorf("%w: full", slot.ErrQuotaExceeded))
	state, err := store.Set(ctx, filter.DefaultState())
	require.NoError(t, err)
	assert.Equal(t, filter.DefaultState(), state)
	assert.Equal(t, filter.DefaultState(), store.State())
	assert.Equal(t, 1, memory.Writes())
}

func TestStore_CorruptPayload(t *testing.T) {
	store := filter.NewStore(slot.NewMemoryWith("{not json"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.Load(context.Background())
	assert.Equal(t, filter.DefaultState(), store.State())
}
