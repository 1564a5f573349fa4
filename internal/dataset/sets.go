// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dataset

import (
	"fmt"
	"slices"
)

// DefaultSets returns every known set code in sorted order:
// EB01-EB02, OP01-OP12, P, PRB01-PRB02 and ST01-ST28.
func DefaultSets() []string {
	sets := []string{"P"}
	sets = appendRange(sets, "EB", 1, 2)
	sets = appendRange(sets, "OP", 1, 12)
	sets = appendRange(sets, "PRB", 1, 2)
	sets = appendRange(sets, "ST", 1, 28)

	slices.Sort(sets)
	return sets
}

func appendRange(sets []string, prefix string, from, to int) []string {
	for n := from; n <= to; n++ {
		sets = append(sets, fmt.Sprintf("%s%02d", prefix, n))
	}
	return sets
}
