// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package filter computes which loaded cards are visible.

Visibility is a free-text search AND one predicate per facet group. The facet
selections are a [State], persisted as plain JSON by [Store] and restored
verbatim on the next start.
*/
package filter

import (
	"fmt"
	"slices"
)

// Group names one facet dimension.
type Group string

const (
	GroupColor     Group = "color"
	GroupRarity    Group = "rarity"
	GroupType      Group = "type"
	GroupCounter   Group = "counter"
	GroupAttribute Group = "attribute"
	GroupTrigger   Group = "trigger"
)

// Values of the presence groups ([GroupCounter], [GroupTrigger]).
const (
	PresenceYes = "yes"
	PresenceNo  = "no"
)

// Groups returns every facet group in display order.
func Groups() []Group {
	return []Group{GroupColor, GroupRarity, GroupType, GroupCounter, GroupAttribute, GroupTrigger}
}

// Known reports whether g is a facet group.
func (g Group) Known() bool {
	return slices.Contains(Groups(), g)
}

// GroupState is the selection of one group.
//
// With All set the group imposes no restriction, whatever Values holds.
type GroupState struct {
	All    bool     `json:"all"`
	Values []string `json:"values"`
}

// State maps each group to its selection.
type State map[Group]GroupState

// DefaultState selects everything in every group.
func DefaultState() State {
	state := make(State, len(Groups()))
	for _, group := range Groups() {
		state[group] = GroupState{All: true, Values: []string{}}
	}
	return state
}

// Normalize fills missing groups with "all selected" and drops unknown ones.
func (s State) Normalize() State {
	normalized := DefaultState()
	for group, selection := range s {
		if !group.Known() {
			continue
		}
		if selection.Values == nil {
			selection.Values = []string{}
		}
		normalized[group] = selection
	}
	return normalized
}

// Validate rejects unknown group names.
func (s State) Validate() error {
	for group := range s {
		if !group.Known() {
			return fmt.Errorf("filter: unknown group %q", group)
		}
	}
	return nil
}
