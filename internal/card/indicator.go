// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package card

// Pip is one slot of the owned-quantity indicator.
type Pip string

const (
	PipEmpty   Pip = "empty"
	PipChecked Pip = "checked"
	PipSpecial Pip = "special"
)

// regularPips is the deck limit drawn for non-leader cards.
const regularPips = 4

// Indicator returns the pips shown under a card in the grid.
//
// Leaders show one pip: checked at 1 copy, special at 2 or more.
// Other cards show four pips: the first qty are checked up to 4, and at 5 or
// more the first three are checked and the fourth is special.
func Indicator(quantity int, leader bool) []Pip {
	if leader {
		switch {
		case quantity >= 2:
			return []Pip{PipSpecial}
		case quantity == 1:
			return []Pip{PipChecked}
		default:
			return []Pip{PipEmpty}
		}
	}

	pips := make([]Pip, regularPips)
	for i := range pips {
		pips[i] = PipEmpty
	}

	if quantity >= regularPips+1 {
		for i := 0; i < regularPips-1; i++ {
			pips[i] = PipChecked
		}
		pips[regularPips-1] = PipSpecial
		return pips
	}

	for i := 0; i < quantity && i < regularPips; i++ {
		pips[i] = PipChecked
	}
	return pips
}
