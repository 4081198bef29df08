package app

import "bidwhist/internal/domain"

// Action is a controller request against a session. The set is closed; every
// implementation lives in this file.
type Action interface {
	actionName() string
}

// DealerGuess submits one seat's guess during dealer selection.
type DealerGuess struct {
	Seat  int
	Value int
}

// PlaceBid bids Amount for Seat, or passes when Pass is set.
type PlaceBid struct {
	Seat   int
	Amount int
	Pass   bool
}

// SelectTrump names the contract's trump.
type SelectTrump struct {
	Seat  int
	Trump domain.Trump
}

// PlayCard lays Card from Seat's hand on the current trick.
type PlayCard struct {
	Seat int
	Card domain.Card
}

// ReadyForNextHand acknowledges a finished hand, or asks for a rematch once
// the game is over. It is issued per controller, not per seat.
type ReadyForNextHand struct{}

func (DealerGuess) actionName() string      { return "dealer_guess" }
func (PlaceBid) actionName() string         { return "place_bid" }
func (SelectTrump) actionName() string      { return "select_trump" }
func (PlayCard) actionName() string         { return "play_card" }
func (ReadyForNextHand) actionName() string { return "ready_for_next_hand" }

// ActionName returns a stable name for logging.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}
