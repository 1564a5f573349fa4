// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package card_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/card"
)

/*
TestParseSet_BothSchemaShapes checks that legacy and new records normalize
into the same canonical fields.
*/
func TestParseSet_BothSchemaShapes(t *testing.T) {
	data := []byte(`[
		{
			"code": "OP01-001",
			"name": "Roronoa Zoro",
			"Class": "LEADER",
			"color": "Red",
			"attribute": "Slash",
			"counter": "-",
			"effect": "[DON!! x1] Your Characters gain +1000 power.",
			"features": "Supernovas/Straw Hat Crew",
			"sets": "OP01, ST01",
			"images": ["https://legacy.example/OP01-001.jpg"]
		},
		{
			"code": "OP01-013",
			"name": "Sanji",
			"type": "CHARACTER",
			"colors": ["Red", "Green"],
			"counter": 1000,
			"text": "Rush",
			"trigger": "",
			"card_image_link": ["/images/cardlist/card/OP01-013.png?260101"]
		},
		{"name": "no code, dropped"}
	]`)

	cards, err := card.ParseSet(data)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	zoro := cards[0]
	assert.Equal(t, "LEADER", zoro.Class)
	assert.Equal(t, "LEADER", zoro.Category)
	assert.Equal(t, []string{"Red"}, zoro.Colors)
	assert.Equal(t, []string{"Supernovas", "Straw Hat Crew"}, zoro.Features)
	assert.Equal(t, []string{"OP01", "ST01"}, zoro.Sets)
	assert.False(t, zoro.HasCounter())
	assert.Equal(t, []string{"https://legacy.example/OP01-001.jpg"}, zoro.LegacyImages)
	assert.Empty(t, zoro.ImageLinks)

	sanji := cards[1]
	assert.Equal(t, "CHARACTER", sanji.Class)
	assert.Equal(t, []string{"Red", "Green"}, sanji.Colors)
	assert.Equal(t, "1000", sanji.Counter)
	assert.True(t, sanji.HasCounter())
	assert.False(t, sanji.HasTrigger())
	assert.Equal(t, "Rush", sanji.Text)
}

func TestParseSet_Malformed(t *testing.T) {
	_, err := card.ParseSet([]byte(`{"code": "OP01-001"}`))
	assert.Error(t, err)
}

/*
TestResolveImageURL covers truncation, relative joining and the fallbacks.
*/
func TestResolveImageURL(t *testing.T) {
	const base = "https://en.onepiece-cardgame.com/"

	tests := []struct {
		name string
		card card.Card
		want string
	}{
		{
			name: "relative_with_query",
			card: card.Card{ImageLinks: []string{"/images/cardlist/card/OP01-013.png?260101"}},
			want: "https://en.onepiece-cardgame.com/images/cardlist/card/OP01-013.png",
		},
		{
			name: "relative_many_slashes",
			card: card.Card{ImageLinks: []string{"///images/a.png"}},
			want: "https://en.onepiece-cardgame.com/images/a.png",
		},
		{
			name: "absolute_kept",
			card: card.Card{ImageLinks: []string{"https://cdn.example/x/OP02-001_p1.png#frag"}},
			want: "https://cdn.example/x/OP02-001_p1.png",
		},
		{
			name: "first_png_only",
			card: card.Card{ImageLinks: []string{"https://cdn.example/a.png/b.png"}},
			want: "https://cdn.example/a.png",
		},
		{
			name: "legacy_fallback_verbatim",
			card: card.Card{LegacyImages: []string{"https://legacy.example/OP01-001.jpg?v=2"}},
			want: "https://legacy.example/OP01-001.jpg?v=2",
		},
		{
			name: "nothing",
			card: card.Card{Code: "OP01-001"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, card.ResolveImageURL(tt.card, base))
		})
	}
}

/*
TestResolver_Key checks stability and that distinct prints get distinct keys.
*/
func TestResolver_Key(t *testing.T) {
	resolver := card.NewResolver("https://en.onepiece-cardgame.com/")

	base := card.Card{Code: "OP01-001", ImageLinks: []string{"/images/OP01-001.png"}}
	alt := card.Card{Code: "OP01-001", ImageLinks: []string{"/images/OP01-001_p1.png"}}
	other := card.Card{Code: "OP01-002", ImageLinks: []string{"/images/OP01-001.png"}}

	first := resolver.Key(base)
	assert.Equal(t, first, resolver.Key(base))
	assert.Equal(t, "OP01-001\x1fhttps://en.onepiece-cardgame.com/images/OP01-001.png", first)

	assert.NotEqual(t, first, resolver.Key(alt))
	assert.NotEqual(t, first, resolver.Key(other))

	code, url, ok := card.SplitKey(first)
	require.True(t, ok)
	assert.Equal(t, "OP01-001", code)
	assert.Equal(t, "https://en.onepiece-cardgame.com/images/OP01-001.png", url)

	resolver.Invalidate()
	assert.Equal(t, first, resolver.Key(base))
}

/*
TestIndex_IsLeader checks case-insensitive matching and reset on reload.
*/
func TestIndex_IsLeader(t *testing.T) {
	index := card.NewIndex([]card.Card{
		{Code: "OP01-001", Class: "Leader"},
		{Code: "OP01-013", Class: "CHARACTER"},
		{Code: "OP01-001", Class: "CHARACTER"},
	})

	assert.True(t, index.IsLeader("OP01-001"))
	assert.False(t, index.IsLeader("OP01-013"))
	assert.False(t, index.IsLeader("ZZ99-999"))

	index.Reset([]card.Card{{Code: "OP01-001", Class: "EVENT"}})
	assert.False(t, index.IsLeader("OP01-001"))
}

func TestIndicator(t *testing.T) {
	e, c, s := card.PipEmpty, card.PipChecked, card.PipSpecial

	tests := []struct {
		name     string
		quantity int
		leader   bool
		want     []card.Pip
	}{
		{"leader_none", 0, true, []card.Pip{e}},
		{"leader_one", 1, true, []card.Pip{c}},
		{"leader_many", 3, true, []card.Pip{s}},
		{"regular_none", 0, false, []card.Pip{e, e, e, e}},
		{"regular_two", 2, false, []card.Pip{c, c, e, e}},
		{"regular_full", 4, false, []card.Pip{c, c, c, c}},
		{"regular_over", 7, false, []card.Pip{c, c, c, s}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, card.Indicator(tt.quantity, tt.leader))
		})
	}
}
