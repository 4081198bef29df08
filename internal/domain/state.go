package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// NumSeats is the fixed number of hands around the table.
	NumSeats = 4
	// NumTeams is the number of partnerships.
	NumTeams = 2
	// HandSize is the number of cards dealt to every seat.
	HandSize = 13
	// TricksPerHand is the number of tricks played in one hand.
	TricksPerHand = HandSize
)

// Phase represents the lifecycle stage of a table.
type Phase string

const (
	// PhaseDealerSelection collects one guess per seat to pick the first dealer.
	PhaseDealerSelection Phase = "dealer_selection"
	// PhaseDealerReveal is passed through when the target number is drawn.
	PhaseDealerReveal Phase = "dealer_reveal"
	// PhaseDealing is passed through while a fresh deck is dealt.
	PhaseDealing Phase = "dealing"
	// PhaseBidding waits for the seat whose turn it is to bid or pass.
	PhaseBidding Phase = "bidding"
	// PhaseTrumpSelection waits for the contract seat to name trump.
	PhaseTrumpSelection Phase = "trump_selection"
	// PhasePlaying waits for the next seat in the current trick.
	PhasePlaying Phase = "playing"
	// PhaseTrickComplete is passed through when the fourth card of a trick lands.
	PhaseTrickComplete Phase = "trick_complete"
	// PhaseHandComplete waits for every controller to acknowledge the hand result.
	PhaseHandComplete Phase = "hand_complete"
	// PhaseGameComplete is terminal until every controller asks for a rematch.
	PhaseGameComplete Phase = "game_complete"
)

// Suit is one of the four card suits.
type Suit int8

const (
	SuitClubs Suit = iota
	SuitDiamonds
	SuitHearts
	SuitSpades
)

// Suits lists the suits in deck order.
var Suits = [4]Suit{SuitClubs, SuitDiamonds, SuitHearts, SuitSpades}

func (s Suit) String() string {
	switch s {
	case SuitClubs:
		return "clubs"
	case SuitDiamonds:
		return "diamonds"
	case SuitHearts:
		return "hearts"
	case SuitSpades:
		return "spades"
	default:
		return "?"
	}
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	return s >= SuitClubs && s <= SuitSpades
}

// ParseSuit accepts the long name ("hearts") or the initial ("H").
func ParseSuit(v string) (Suit, error) {
	switch strings.ToLower(v) {
	case "clubs", "c":
		return SuitClubs, nil
	case "diamonds", "d":
		return SuitDiamonds, nil
	case "hearts", "h":
		return SuitHearts, nil
	case "spades", "s":
		return SuitSpades, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCard, v)
	}
}

// Rank is a card rank; the numeric value doubles as its strength (2 low, ace high).
type Rank int8

const (
	Rank2  Rank = 2
	Rank3  Rank = 3
	Rank4  Rank = 4
	Rank5  Rank = 5
	Rank6  Rank = 6
	Rank7  Rank = 7
	Rank8  Rank = 8
	Rank9  Rank = 9
	Rank10 Rank = 10
	RankJ  Rank = 11
	RankQ  Rank = 12
	RankK  Rank = 13
	RankA  Rank = 14
)

func (r Rank) String() string {
	switch r {
	case RankJ:
		return "J"
	case RankQ:
		return "Q"
	case RankK:
		return "K"
	case RankA:
		return "A"
	default:
		if r.Valid() {
			return strconv.Itoa(int(r))
		}
		return "?"
	}
}

// Valid reports whether r is between 2 and ace.
func (r Rank) Valid() bool {
	return r >= Rank2 && r <= RankA
}

// ParseRank accepts "2".."10", "J", "Q", "K", "A".
func ParseRank(v string) (Rank, error) {
	switch strings.ToUpper(v) {
	case "J":
		return RankJ, nil
	case "Q":
		return RankQ, nil
	case "K":
		return RankK, nil
	case "A":
		return RankA, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: rank %q", ErrInvalidCard, v)
	}
	r := Rank(n)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: rank %q", ErrInvalidCard, v)
	}
	return r, nil
}

// Card is a single playing card.
type Card struct {
	Suit Suit
	Rank Rank
}

func (c Card) String() string {
	return c.Rank.String() + strings.ToUpper(c.Suit.String()[:1])
}

// Valid reports whether the card exists in a standard deck.
func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

// Team is one of the two partnerships.
type Team int8

const (
	// TeamNone marks "no team yet", e.g. an unclaimed seat or an undecided match.
	TeamNone Team = -1
	TeamUs   Team = 0
	TeamThem Team = 1
)

func (t Team) String() string {
	switch t {
	case TeamUs:
		return "us"
	case TeamThem:
		return "them"
	default:
		return "none"
	}
}

// Valid reports whether t is one of the two playing teams.
func (t Team) Valid() bool {
	return t == TeamUs || t == TeamThem
}

// Other returns the opposing team.
func (t Team) Other() Team {
	if t == TeamUs {
		return TeamThem
	}
	return TeamUs
}

// ParseTeam accepts "us" or "them".
func ParseTeam(v string) (Team, error) {
	switch strings.ToLower(v) {
	case "us":
		return TeamUs, nil
	case "them":
		return TeamThem, nil
	default:
		return TeamNone, fmt.Errorf("%w: %q", ErrInvalidTeam, v)
	}
}

// NextSeat returns the seat to the left of seat.
func NextSeat(seat int) int {
	return (seat + 1) % NumSeats
}

// ValidSeat reports whether seat is a table position.
func ValidSeat(seat int) bool {
	return seat >= 0 && seat < NumSeats
}
