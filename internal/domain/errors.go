package domain

import "errors"

// ErrorKind classifies why an action was rejected.
type ErrorKind string

const (
	// KindValidation marks malformed or out-of-range input.
	KindValidation ErrorKind = "validation"
	// KindTurn marks an actor that is not entitled to act.
	KindTurn ErrorKind = "turn_violation"
	// KindRule marks an action the game rules forbid.
	KindRule ErrorKind = "rule_violation"
	// KindState marks an action submitted in a phase it does not belong to.
	KindState ErrorKind = "state_conflict"
	// KindInvariant marks an internal defect. It is never a user mistake.
	KindInvariant ErrorKind = "invariant"
)

// Error is a classified engine error.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrSeatOutOfRange     = newError(KindValidation, "seat out of range")
	ErrGuessOutOfRange    = newError(KindValidation, "guess must be between 1 and 100")
	ErrBidOutOfRange      = newError(KindValidation, "bid must be between 1 and 7")
	ErrInvalidCard        = newError(KindValidation, "invalid card")
	ErrInvalidTrump       = newError(KindValidation, "invalid trump")
	ErrInvalidTeam        = newError(KindValidation, "invalid team")
	ErrInvalidPointsToWin = newError(KindValidation, "points to win must be 11 or 21")
	ErrInvalidController  = newError(KindValidation, "controller id required")

	ErrNotYourTurn       = newError(KindTurn, "not your turn")
	ErrNotSeatOwner      = newError(KindTurn, "seat belongs to another controller")
	ErrUnknownController = newError(KindTurn, "controller is not seated at this table")

	ErrAlreadyGuessed    = newError(KindRule, "seat already submitted a guess")
	ErrBidTooLow         = newError(KindRule, "bid not high enough")
	ErrMustBid           = newError(KindRule, "dealer must bid when everyone else passed")
	ErrNotContractSeat   = newError(KindRule, "only the contract seat may choose trump")
	ErrCardNotInHand     = newError(KindRule, "card not in hand")
	ErrMustFollowSuit    = newError(KindRule, "must follow the lead suit")
	ErrSeatTaken         = newError(KindRule, "seat already taken")
	ErrSeatNotHeld       = newError(KindRule, "seat not held by controller")
	ErrTeamFull          = newError(KindRule, "team already has two seats")
	ErrTooManySeats      = newError(KindRule, "a controller may hold at most three seats")
	ErrAlreadyReady      = newError(KindRule, "controller already acknowledged")
	ErrSeatingIncomplete = newError(KindRule, "four seats in two teams of two are required")
	ErrNotAllReady       = newError(KindRule, "every controller must be ready")

	ErrWrongPhase     = newError(KindState, "action not allowed in current phase")
	ErrBiddingClosed  = newError(KindState, "bidding is closed")
	ErrGameInProgress = newError(KindState, "game already in progress")

	ErrDeckAccounting  = newError(KindInvariant, "deck accounting mismatch")
	ErrTrickAccounting = newError(KindInvariant, "trick accounting mismatch")
)

// KindOf returns the classification of err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsUserError reports whether err is a recoverable rejection of a single action.
func IsUserError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindTurn, KindRule, KindState:
		return true
	default:
		return false
	}
}
