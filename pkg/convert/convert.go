// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert provides fault-tolerant string to number conversions.

Quantities arrive from stored payloads and request bodies as loosely typed
text ("3", "2.0", "lots"). These helpers return a default instead of an error,
for callers where malformed input simply counts as zero.
*/
package convert

import (
	"strconv"
)

// ToIntD converts a string to an int, returning def if parsing fails or the string is empty.
func ToIntD(str string, def int) int {
	if str == "" {
		return def
	}

	if v, err := strconv.Atoi(str); err == nil {
		return v
	}
	return def
}

// ToFloat64 converts a string to a float64. Unparseable input yields 0.
func ToFloat64(s string) float64 {
	if s == "" {
		return 0
	}

	v, _ := strconv.ParseFloat(s, 64)
	return v
}
