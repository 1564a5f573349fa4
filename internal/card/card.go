// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package card defines the canonical card record and its identity rules.

Set files have shipped in two historical shapes (a legacy "images" array and
the newer "card_image_link" array, several spellings of the class field,
strings where lists are expected). They are normalized exactly once, when a
set file is parsed, so every consumer sees the same [Card] shape.

Identity:

  - [Resolver.ImageURL] normalizes the primary artwork reference.
  - [Resolver.Key] combines the code with that URL; the same code can name
    several print variants with different art.
  - [Index.IsLeader] answers leader lookups for the loaded dataset.
*/
package card

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Card is one immutable catalog entry loaded from a set file.
type Card struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Class      string   `json:"class,omitempty"`
	Category   string   `json:"category,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	Rarity     string   `json:"rarity,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Counter    string   `json:"counter,omitempty"`
	Trigger    string   `json:"trigger,omitempty"`
	Text       string   `json:"text,omitempty"`
	Features   []string `json:"features,omitempty"`
	Sets       []string `json:"sets,omitempty"`

	// ImageLinks is the new-format reference list, still un-normalized.
	ImageLinks []string `json:"-"`

	// LegacyImages is the old single-image field, used only as a fallback.
	LegacyImages []string `json:"-"`
}

// RawImageRef returns the first raw image reference, new format first.
func (c Card) RawImageRef() string {
	if len(c.ImageLinks) > 0 && c.ImageLinks[0] != "" {
		return c.ImageLinks[0]
	}
	if len(c.LegacyImages) > 0 {
		return c.LegacyImages[0]
	}
	return ""
}

// HasCounter reports whether the card carries a counter value.
func (c Card) HasCounter() bool {
	return c.Counter != "" && c.Counter != "-" && c.Counter != "0"
}

// HasTrigger reports whether the card carries trigger text.
func (c Card) HasTrigger() bool {
	return strings.TrimSpace(c.Trigger) != "" && c.Trigger != "-"
}

// # Ingestion

// Raw is the on-disk shape of a card, accepting every historical variant.
type Raw struct {
	Code string     `json:"code"`
	Name flexString `json:"name"`

	ClassLower flexString `json:"class"`
	ClassUpper flexString `json:"Class"`
	Type       flexString `json:"type"`
	CardType   flexString `json:"card_type"`
	Category   flexString `json:"category"`

	Color      flexList   `json:"color"`
	Colors     flexList   `json:"colors"`
	Rarity     flexString `json:"rarity"`
	Attribute  flexList   `json:"attribute"`
	Attributes flexList   `json:"attributes"`
	Counter    flexString `json:"counter"`
	Trigger    flexString `json:"trigger"`

	Effect      flexString `json:"effect"`
	TextField   flexString `json:"text"`
	Description flexString `json:"description"`

	Features flexList `json:"features"`
	Feature  flexList `json:"feature"`
	Sets     flexList `json:"sets"`
	Set      flexList `json:"set"`

	CardImageLink flexList   `json:"card_image_link"`
	Images        flexList   `json:"images"`
	Image         flexString `json:"image"`
}

// Normalize folds every variant into the canonical [Card].
func (raw Raw) Normalize() Card {
	class := firstNonEmpty(string(raw.ClassLower), string(raw.ClassUpper), string(raw.Type), string(raw.CardType))
	category := firstNonEmpty(string(raw.Category), class)

	legacy := []string(raw.Images)
	if len(legacy) == 0 && raw.Image != "" {
		legacy = []string{string(raw.Image)}
	}

	return Card{
		Code:         strings.TrimSpace(raw.Code),
		Name:         string(raw.Name),
		Class:        class,
		Category:     category,
		Colors:       splitAll(firstList(raw.Color, raw.Colors), "/"),
		Rarity:       string(raw.Rarity),
		Attributes:   splitAll(firstList(raw.Attribute, raw.Attributes), "/"),
		Counter:      string(raw.Counter),
		Trigger:      string(raw.Trigger),
		Text:         firstNonEmpty(string(raw.Effect), string(raw.TextField), string(raw.Description)),
		Features:     splitAll(firstList(raw.Features, raw.Feature), "/"),
		Sets:         splitAll(firstList(raw.Sets, raw.Set), ","),
		ImageLinks:   []string(raw.CardImageLink),
		LegacyImages: legacy,
	}
}

/*
ParseSet decodes one set file into canonical cards.

Records without a code are dropped; they cannot be keyed or sorted.

Returns:
  - []Card: The normalized records
  - error: The file is not a JSON array of objects
*/
func ParseSet(data []byte) ([]Card, error) {
	var raws []Raw
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("card: parse set file: %w", err)
	}

	cards := make([]Card, 0, len(raws))
	for _, raw := range raws {
		normalized := raw.Normalize()
		if normalized.Code == "" {
			continue
		}
		cards = append(cards, normalized)
	}
	return cards, nil
}

// # Flexible JSON values

// flexString accepts a string, a number, a boolean or null.
type flexString string

func (value *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*value = ""
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*value = flexString(strings.TrimSpace(s))
	case strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{"):
		// Some files carry structured values where text is expected; ignore them.
		*value = ""
	default:
		*value = flexString(trimmed)
	}
	return nil
}

// flexList accepts an array of scalars, a single scalar or null.
type flexList []string

func (list *flexList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item != "" {
				out = append(out, string(item))
			}
		}
		*list = out
		return nil
	}

	var single flexString
	if err := single.UnmarshalJSON(data); err != nil {
		return err
	}
	if single == "" {
		*list = nil
		return nil
	}
	*list = flexList{string(single)}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstList(lists ...flexList) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// splitAll splits every element on sep and drops empty parts.
func splitAll(values []string, sep string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, sep) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
