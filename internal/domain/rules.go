package domain

import (
	"fmt"
	"strings"
)

// Trump is the contract's trump choice: a suit or no-trump.
type Trump int8

const (
	TrumpUnset Trump = iota
	TrumpClubs
	TrumpDiamonds
	TrumpHearts
	TrumpSpades
	NoTrump
)

// TrumpOf returns the trump naming suit s.
func TrumpOf(s Suit) Trump {
	return Trump(s) + TrumpClubs
}

// Suit returns the trump suit. ok is false for no-trump and unset.
func (t Trump) Suit() (Suit, bool) {
	if t < TrumpClubs || t > TrumpSpades {
		return 0, false
	}
	return Suit(t - TrumpClubs), true
}

// Valid reports whether t is a choice the contract seat can make.
func (t Trump) Valid() bool {
	return t >= TrumpClubs && t <= NoTrump
}

func (t Trump) String() string {
	switch t {
	case NoTrump:
		return "no_trump"
	case TrumpUnset:
		return ""
	}
	if s, ok := t.Suit(); ok {
		return s.String()
	}
	return "?"
}

// ParseTrump accepts a suit name or "no_trump" / "no-trump".
func ParseTrump(v string) (Trump, error) {
	switch strings.ToLower(v) {
	case "no_trump", "no-trump", "notrump", "nt":
		return NoTrump, nil
	}
	s, err := ParseSuit(v)
	if err != nil {
		return TrumpUnset, fmt.Errorf("%w: %q", ErrInvalidTrump, v)
	}
	return TrumpOf(s), nil
}

// Play is one card laid on a trick.
type Play struct {
	Seat int
	Card Card
}

// Trick is one round of four plays.
type Trick struct {
	Number int
	Leader int
	Plays  []Play
	// Winner is -1 until the fourth card is played.
	Winner int
}

// NewTrick opens trick number led by leader.
func NewTrick(number, leader int) Trick {
	return Trick{Number: number, Leader: leader, Plays: []Play{}, Winner: -1}
}

// LeadSuit returns the suit of the first card. ok is false on an empty trick.
func (t Trick) LeadSuit() (Suit, bool) {
	if len(t.Plays) == 0 {
		return 0, false
	}
	return t.Plays[0].Card.Suit, true
}

// NextSeat returns the seat expected to play, or -1 once the trick is full.
func (t Trick) NextSeat() int {
	if t.Complete() {
		return -1
	}
	return (t.Leader + len(t.Plays)) % NumSeats
}

// Complete reports whether all four seats have played.
func (t Trick) Complete() bool {
	return len(t.Plays) >= NumSeats
}

// Cards returns the played cards in play order.
func (t Trick) Cards() []Card {
	out := make([]Card, 0, len(t.Plays))
	for _, p := range t.Plays {
		out = append(out, p.Card)
	}
	return out
}

// LegalCards returns the cards of hand that may be played to t.
func LegalCards(hand []Card, t Trick) []Card {
	lead, ok := t.LeadSuit()
	if ok && HasSuit(hand, lead) {
		return CardsOfSuit(hand, lead)
	}
	return append([]Card{}, hand...)
}

// CheckPlay validates that seat may play card from hand to t.
func CheckPlay(hand []Card, t Trick, seat int, card Card) error {
	if !card.Valid() {
		return ErrInvalidCard
	}
	if t.Complete() || seat != t.NextSeat() {
		return ErrNotYourTurn
	}
	if !ContainsCard(hand, card) {
		return ErrCardNotInHand
	}
	if lead, ok := t.LeadSuit(); ok && card.Suit != lead && HasSuit(hand, lead) {
		return ErrMustFollowSuit
	}
	return nil
}

// WinningPlay returns the index of the winning play: the highest trump if any
// trump was played, otherwise the highest card of the lead suit.
func WinningPlay(plays []Play, trump Trump) int {
	if len(plays) == 0 {
		return -1
	}
	trumpSuit, hasTrump := trump.Suit()
	lead := plays[0].Card.Suit
	best := 0
	for i := 1; i < len(plays); i++ {
		c, b := plays[i].Card, plays[best].Card
		if hasTrump {
			if c.Suit == trumpSuit && b.Suit != trumpSuit {
				best = i
				continue
			}
			if c.Suit != trumpSuit && b.Suit == trumpSuit {
				continue
			}
		}
		if c.Suit == b.Suit {
			if c.Rank > b.Rank {
				best = i
			}
			continue
		}
		if b.Suit != lead && c.Suit == lead {
			best = i
		}
	}
	return best
}

// Resolve sets and returns the winning seat of a complete trick.
func (t *Trick) Resolve(trump Trump) int {
	if !t.Complete() {
		return -1
	}
	t.Winner = t.Plays[WinningPlay(t.Plays, trump)].Seat
	return t.Winner
}
