// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/taibuivan/cardbinder/pkg/convert"
)

// Marker prefixes every compact payload so plain JSON stays decodable.
const Marker = "cb1:"

const escapeChar = '~'

// ErrCorrupt is returned by [Decode] for payloads that cannot be read back.
var ErrCorrupt = errors.New("collection: corrupt payload")

// shorthand maps each token byte to the substring it stands for.
// Longer targets come first so they win over their own prefixes.
var shorthand = []struct {
	token  byte
	target string
}{
	{'1', "https://en.onepiece-cardgame.com/images/cardlist/card/"},
	{'2', "https://en.onepiece-cardgame.com/"},
	{'3', `\u001f`},
	{'4', ".png"},
	{'5', "PRB"},
	{'6', "OP"},
	{'7', "ST"},
	{'8', "EB"},
}

// # Encoding

/*
Encode serializes a collection into its compact form.

The JSON text is escaped ("~" becomes "~~") and then every shorthand target
is replaced by "~" plus its token. Keys that already contain a target or a
literal "~" therefore round-trip unchanged.
*/
func Encode(entries map[string]int) (string, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("collection: encode: %w", err)
	}

	text := strings.ReplaceAll(string(raw), string(escapeChar), string(escapeChar)+string(escapeChar))
	for _, sub := range shorthand {
		text = strings.ReplaceAll(text, sub.target, string([]byte{escapeChar, sub.token}))
	}

	return Marker + text, nil
}

// # Decoding

/*
Decode reads a payload written by [Encode] or by older versions.

Payloads without the marker are parsed as plain JSON. Values may be numbers
or numeric strings; non-positive values are dropped.

Returns:
  - map[string]int: The decoded entries (never nil on success)
  - error: [ErrCorrupt] wrapping the parse failure
*/
func Decode(payload string) (map[string]int, error) {
	if payload == "" {
		return map[string]int{}, nil
	}

	text := payload
	if strings.HasPrefix(payload, Marker) {
		expanded, err := expand(strings.TrimPrefix(payload, Marker))
		if err != nil {
			return nil, err
		}
		text = expanded
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	entries := make(map[string]int, len(raw))
	for key, value := range raw {
		if n := Coerce(value); n > 0 {
			entries[key] = n
		}
	}
	return entries, nil
}

// expand reverses the shorthand in one left-to-right scan.
func expand(text string) (string, error) {
	var builder strings.Builder
	builder.Grow(len(text) * 2)

	for i := 0; i < len(text); i++ {
		if text[i] != escapeChar {
			builder.WriteByte(text[i])
			continue
		}

		if i+1 >= len(text) {
			return "", fmt.Errorf("%w: dangling escape at %d", ErrCorrupt, i)
		}
		i++

		if text[i] == escapeChar {
			builder.WriteByte(escapeChar)
			continue
		}

		target, ok := lookupToken(text[i])
		if !ok {
			return "", fmt.Errorf("%w: unknown token %q at %d", ErrCorrupt, text[i], i)
		}
		builder.WriteString(target)
	}

	return builder.String(), nil
}

func lookupToken(token byte) (string, bool) {
	for _, sub := range shorthand {
		if sub.token == token {
			return sub.target, true
		}
	}
	return "", false
}

// # Quantity Coercion

// Coerce turns a requested quantity into a stored one.
// Numbers and numeric strings are truncated toward zero; everything else is 0.
// The result is never negative.
func Coerce(value any) int {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float32:
		n = int(v)
	case float64:
		n = int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n = int(i)
		} else {
			n = int(convert.ToFloat64(v.String()))
		}
	case string:
		trimmed := strings.TrimSpace(v)
		n = convert.ToIntD(trimmed, int(convert.ToFloat64(trimmed)))
	}

	return max(0, n)
}
