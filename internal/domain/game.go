package domain

import "fmt"

// Rules are the per-table options fixed when the game starts.
type Rules struct {
	PointsToWin int
	// ForceDealerBid makes the dealer bid when the other three seats pass.
	// With it off an all-pass round is redealt by the same dealer.
	ForceDealerBid bool
}

// DefaultRules returns a 21-point game with the forced dealer bid.
func DefaultRules() Rules {
	return Rules{PointsToWin: 21, ForceDealerBid: true}
}

// Validate checks the table options.
func (r Rules) Validate() error {
	if r.PointsToWin != 11 && r.PointsToWin != 21 {
		return ErrInvalidPointsToWin
	}
	return nil
}

// Contract is the winning bid of a hand and the trump it is played in.
type Contract struct {
	Seat  int
	Bid   int
	Trump Trump
}

// Game captures the authoritative state of one table across hands.
type Game struct {
	Rules   Rules
	Seating Seating
	Phase   Phase

	// Dealer is -1 until dealer selection finishes.
	Dealer     int
	HandNumber int
	// Redeals counts all-pass redeals of the current hand.
	Redeals int

	DealerSelection DealerSelection

	Hands     [NumSeats][]Card
	Bidding   Bidding
	Contract  Contract
	Trick     Trick
	Tricks    []Trick
	TricksWon [NumTeams]int

	// LastTrick is the most recently completed trick, kept for display only.
	LastTrick  *Trick
	LastResult *HandResult

	Scores [NumTeams]int
	Winner Team
	Ready  map[string]bool
}

// NewGame opens a table at dealer selection.
func NewGame(seating Seating, rules Rules) (*Game, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if err := seating.Validate(); err != nil {
		return nil, err
	}
	return &Game{
		Rules:           rules,
		Seating:         seating,
		Phase:           PhaseDealerSelection,
		Dealer:          -1,
		DealerSelection: NewDealerSelection(),
		Contract:        Contract{Seat: -1},
		Trick:           NewTrick(0, -1),
		Winner:          TeamNone,
		Ready:           map[string]bool{},
	}, nil
}

// CurrentSeat returns the seat whose decision the game waits on, or -1 when
// no single seat is on turn.
func (g *Game) CurrentSeat() int {
	switch g.Phase {
	case PhaseBidding:
		return g.Bidding.Turn
	case PhaseTrumpSelection:
		return g.Contract.Seat
	case PhasePlaying:
		return g.Trick.NextSeat()
	default:
		return -1
	}
}

// BiddingTeam returns the team holding the contract.
func (g *Game) BiddingTeam() Team {
	return g.Seating.TeamOf(g.Contract.Seat)
}

// Clone returns a deep copy of g.
func (g *Game) Clone() *Game {
	c := *g
	for i := range g.Hands {
		c.Hands[i] = cloneCards(g.Hands[i])
	}
	c.Bidding.Bids = append([]Bid(nil), g.Bidding.Bids...)
	c.Trick = cloneTrick(g.Trick)
	c.Tricks = make([]Trick, len(g.Tricks))
	for i, t := range g.Tricks {
		c.Tricks[i] = cloneTrick(t)
	}
	if g.LastTrick != nil {
		t := cloneTrick(*g.LastTrick)
		c.LastTrick = &t
	}
	if g.LastResult != nil {
		r := *g.LastResult
		c.LastResult = &r
	}
	c.Ready = make(map[string]bool, len(g.Ready))
	for k, v := range g.Ready {
		c.Ready[k] = v
	}
	return &c
}

// CheckInvariants verifies card and trick accounting. A failure is a defect
// in the engine, never a user error.
func (g *Game) CheckInvariants() error {
	switch g.Phase {
	case PhaseBidding, PhaseTrumpSelection, PhasePlaying, PhaseTrickComplete, PhaseHandComplete:
	default:
		return nil
	}

	seen := make(map[Card]bool, NumSeats*HandSize)
	count := func(c Card) error {
		if !c.Valid() {
			return fmt.Errorf("%w: invalid card %v", ErrDeckAccounting, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate %s", ErrDeckAccounting, c)
		}
		seen[c] = true
		return nil
	}
	for _, hand := range g.Hands {
		for _, c := range hand {
			if err := count(c); err != nil {
				return err
			}
		}
	}
	for _, t := range g.Tricks {
		for _, p := range t.Plays {
			if err := count(p.Card); err != nil {
				return err
			}
		}
	}
	for _, p := range g.Trick.Plays {
		if err := count(p.Card); err != nil {
			return err
		}
	}
	if len(seen) != NumSeats*HandSize {
		return fmt.Errorf("%w: %d cards accounted for", ErrDeckAccounting, len(seen))
	}

	if g.TricksWon[TeamUs]+g.TricksWon[TeamThem] != len(g.Tricks) {
		return fmt.Errorf("%w: %d tricks won, %d played", ErrTrickAccounting, g.TricksWon[TeamUs]+g.TricksWon[TeamThem], len(g.Tricks))
	}
	for seat, hand := range g.Hands {
		played := len(g.Tricks)
		for _, p := range g.Trick.Plays {
			if p.Seat == seat {
				played++
			}
		}
		if len(hand)+played != HandSize {
			return fmt.Errorf("%w: seat %d holds %d cards after %d plays", ErrDeckAccounting, seat, len(hand), played)
		}
	}
	return nil
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	return append([]Card{}, cards...)
}

func cloneTrick(t Trick) Trick {
	t.Plays = append([]Play{}, t.Plays...)
	return t
}
