package domain

import "sort"

// Randomizer is the subset of *rand.Rand the engine draws from.
type Randomizer interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewDeck returns a sorted 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, NumSeats*HandSize)
	for _, s := range Suits {
		for r := Rank2; r <= RankA; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(deck []Card, rng Randomizer) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Deal shuffles a fresh deck and deals it one card at a time, starting with
// the seat left of the dealer, so every seat ends with HandSize cards.
func Deal(dealer int, rng Randomizer) [NumSeats][]Card {
	deck := ShuffleDeck(NewDeck(), rng)
	var hands [NumSeats][]Card
	for i := range hands {
		hands[i] = make([]Card, 0, HandSize)
	}
	seat := NextSeat(dealer)
	for _, c := range deck {
		hands[seat] = append(hands[seat], c)
		seat = NextSeat(seat)
	}
	for i := range hands {
		SortHand(hands[i])
	}
	return hands
}

// SortHand orders a hand by suit, then ascending rank.
func SortHand(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cardOrder(cards[i]) < cardOrder(cards[j])
	})
}

func cardOrder(c Card) int {
	return int(c.Suit)*16 + int(c.Rank)
}
