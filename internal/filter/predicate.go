// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package filter

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/taibuivan/cardbinder/internal/card"
)

// minQueryRunes is the shortest query that narrows the result.
const minQueryRunes = 3

// minusSign is U+2212, used in card text where users type an ASCII hyphen.
const minusSign = "−"

// # Matcher

// Matcher evaluates one query and one [State] against cards.
//
// A Matcher is not safe for concurrent use; build one per request.
type Matcher struct {
	fold   cases.Caser
	query  string
	search bool
	facets map[Group]map[string]struct{}
	state  State
}

/*
NewMatcher prepares the search and facet predicates.

Parameters:
  - query: string (free text; 1 or 2 runes match every card)
  - state: State (missing groups count as "all selected")

Returns:
  - *Matcher: A ready matcher
*/
func NewMatcher(query string, state State) *Matcher {
	matcher := &Matcher{
		fold:   cases.Fold(),
		state:  state.Normalize(),
		facets: make(map[Group]map[string]struct{}),
	}

	query = strings.TrimSpace(query)
	count := utf8.RuneCountInString(query)
	matcher.search = count == 0 || count >= minQueryRunes
	matcher.query = matcher.normalize(query)

	for group, selection := range matcher.state {
		if selection.All || len(selection.Values) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(selection.Values))
		for _, value := range selection.Values {
			set[matcher.fold.String(strings.TrimSpace(value))] = struct{}{}
		}
		matcher.facets[group] = set
	}

	return matcher
}

// Match reports whether c passes the search and every facet.
func (matcher *Matcher) Match(c card.Card) bool {
	if !matcher.matchSearch(c) {
		return false
	}
	for _, group := range Groups() {
		if !matcher.matchFacet(group, c) {
			return false
		}
	}
	return true
}

func (matcher *Matcher) matchSearch(c card.Card) bool {
	if !matcher.search || matcher.query == "" {
		return true
	}

	haystack := strings.Join([]string{
		c.Code,
		c.Name,
		c.Text,
		c.Trigger,
		strings.Join(c.Sets, " "),
		strings.Join(c.Features, " "),
	}, " ")
	return strings.Contains(matcher.normalize(haystack), matcher.query)
}

func (matcher *Matcher) matchFacet(group Group, c card.Card) bool {
	selection := matcher.state[group]
	if selection.All {
		return true
	}

	values := facetValues(group, c)

	selected, narrowed := matcher.facets[group]
	if !narrowed {
		// Nothing selected: color keeps colorless cards, the rest keep nothing.
		return group == GroupColor && len(values) == 0
	}

	for _, value := range values {
		if _, ok := selected[matcher.fold.String(value)]; ok {
			return true
		}
	}
	return false
}

func (matcher *Matcher) normalize(text string) string {
	return matcher.fold.String(strings.ReplaceAll(text, minusSign, "-"))
}

// facetValues returns the card's values for one group, skipping empty ones.
func facetValues(group Group, c card.Card) []string {
	var raw []string
	switch group {
	case GroupColor:
		raw = c.Colors
	case GroupRarity:
		raw = []string{c.Rarity}
	case GroupType:
		raw = []string{c.Category}
	case GroupAttribute:
		raw = c.Attributes
	case GroupCounter:
		return []string{presence(c.HasCounter())}
	case GroupTrigger:
		return []string{presence(c.HasTrigger())}
	}

	values := make([]string, 0, len(raw))
	for _, value := range raw {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func presence(ok bool) string {
	if ok {
		return PresenceYes
	}
	return PresenceNo
}

// # Visibility

// Visible returns the cards matching query and state, in input order.
func Visible(cards []card.Card, query string, state State) []card.Card {
	matcher := NewMatcher(query, state)

	visible := make([]card.Card, 0, len(cards))
	for _, c := range cards {
		if matcher.Match(c) {
			visible = append(visible, c)
		}
	}
	return visible
}
