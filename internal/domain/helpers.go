package domain

// ContainsCard reports whether hand holds card.
func ContainsCard(hand []Card, card Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

// RemoveCard returns hand without the first occurrence of card.
func RemoveCard(hand []Card, card Card) ([]Card, bool) {
	for i, c := range hand {
		if c == card {
			out := make([]Card, 0, len(hand)-1)
			out = append(out, hand[:i]...)
			return append(out, hand[i+1:]...), true
		}
	}
	return hand, false
}

// HasSuit reports whether any card in hand is of suit.
func HasSuit(hand []Card, suit Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// CardsOfSuit returns the cards of hand in suit, preserving order.
func CardsOfSuit(hand []Card, suit Suit) []Card {
	out := []Card{}
	for _, c := range hand {
		if c.Suit == suit {
			out = append(out, c)
		}
	}
	return out
}

// LongestSuit returns the suit with the most cards in hand. Ties go to the
// higher suit.
func LongestSuit(hand []Card) Suit {
	var counts [4]int
	for _, c := range hand {
		if c.Suit.Valid() {
			counts[c.Suit]++
		}
	}
	best := SuitSpades
	for _, s := range []Suit{SuitHearts, SuitDiamonds, SuitClubs} {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best
}
