package app

import "bidwhist/internal/domain"

// EventKind identifies emitted events for transport dispatch.
type EventKind string

const (
	EventPhaseChanged        EventKind = "phase_changed"
	EventDealerGuessRecorded EventKind = "dealer_guess_recorded"
	EventDealerRevealed      EventKind = "dealer_revealed"
	EventHandDealt           EventKind = "hand_dealt"
	EventBidPlaced           EventKind = "bid_placed"
	EventBiddingRedeal       EventKind = "bidding_redeal"
	EventContractWon         EventKind = "contract_won"
	EventTrumpSelected       EventKind = "trump_selected"
	EventCardPlayed          EventKind = "card_played"
	EventTrickCompleted      EventKind = "trick_completed"
	EventHandCompleted       EventKind = "hand_completed"
	EventGameCompleted       EventKind = "game_completed"
	EventControllerReady     EventKind = "controller_ready"
	EventMatchRestarted      EventKind = "match_restarted"
)

// Payload is the closed set of event bodies. Each payload knows its kind.
type Payload interface {
	kind() EventKind
}

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    Payload
	Recipients []string // controller IDs; empty means broadcast
}

func newEvent(p Payload, recipients ...string) Event {
	return Event{Kind: p.kind(), Payload: p, Recipients: recipients}
}

type PhaseChangedPayload struct {
	From domain.Phase
	To   domain.Phase
}

// DealerGuessRecordedPayload hides the value until every seat has guessed.
type DealerGuessRecordedPayload struct {
	Seat    int
	Pending []int
}

type DealerRevealedPayload struct {
	Target  int
	Guesses [domain.NumSeats]int
	Dealer  int
}

// HandDealtPayload carries the private hands of one controller's seats.
type HandDealtPayload struct {
	ControllerID string
	HandNumber   int
	Dealer       int
	Hands        map[int][]domain.Card
}

type BidPlacedPayload struct {
	Seat     int
	Amount   int
	Pass     bool
	NextSeat int
}

type BiddingRedealPayload struct {
	Dealer  int
	Redeals int
}

type ContractWonPayload struct {
	Seat int
	Bid  int
	Team domain.Team
}

type TrumpSelectedPayload struct {
	Seat  int
	Trump domain.Trump
}

type CardPlayedPayload struct {
	Seat        int
	Card        domain.Card
	TrickNumber int
	NextSeat    int
}

// TrickCompletedPayload is advisory: the next lead is already requested.
type TrickCompletedPayload struct {
	Number      int
	WinnerSeat  int
	WinningTeam domain.Team
	Plays       []domain.Play
	TricksWon   [domain.NumTeams]int
}

type HandCompletedPayload struct {
	HandNumber int
	Result     domain.HandResult
	Scores     [domain.NumTeams]int
}

type GameCompletedPayload struct {
	Winner domain.Team
	Scores [domain.NumTeams]int
}

type ControllerReadyPayload struct {
	ControllerID string
	Waiting      []string
}

type MatchRestartedPayload struct {
	PointsToWin int
}

func (PhaseChangedPayload) kind() EventKind        { return EventPhaseChanged }
func (DealerGuessRecordedPayload) kind() EventKind { return EventDealerGuessRecorded }
func (DealerRevealedPayload) kind() EventKind      { return EventDealerRevealed }
func (HandDealtPayload) kind() EventKind           { return EventHandDealt }
func (BidPlacedPayload) kind() EventKind           { return EventBidPlaced }
func (BiddingRedealPayload) kind() EventKind       { return EventBiddingRedeal }
func (ContractWonPayload) kind() EventKind         { return EventContractWon }
func (TrumpSelectedPayload) kind() EventKind       { return EventTrumpSelected }
func (CardPlayedPayload) kind() EventKind          { return EventCardPlayed }
func (TrickCompletedPayload) kind() EventKind      { return EventTrickCompleted }
func (HandCompletedPayload) kind() EventKind       { return EventHandCompleted }
func (GameCompletedPayload) kind() EventKind       { return EventGameCompleted }
func (ControllerReadyPayload) kind() EventKind     { return EventControllerReady }
func (MatchRestartedPayload) kind() EventKind      { return EventMatchRestarted }
