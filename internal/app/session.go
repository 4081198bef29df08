package app

import (
	"fmt"
	"sync"

	"bidwhist/internal/domain"

	"github.com/google/uuid"
)

// Session is the single writer of one table's game. Actions are serialized
// under mu and applied to a clone that replaces the live game only when the
// action is accepted and the result passes the invariant check.
type Session struct {
	mu      sync.Mutex
	id      string
	svc     *Service
	game    *domain.Game
	version int64
	closed  bool
}

// ForcedAction is an action a supervisor may apply on a controller's behalf.
type ForcedAction struct {
	ControllerID string
	Action       Action
}

// NewSession starts a game for a finalized seating.
func NewSession(svc *Service, seating domain.Seating, rules domain.Rules) (*Session, []Event, error) {
	if svc == nil {
		svc = NewService(nil)
	}
	game, events, err := svc.NewGame(seating, rules)
	if err != nil {
		return nil, nil, err
	}
	return &Session{
		id:      uuid.NewString(),
		svc:     svc,
		game:    game,
		version: 1,
	}, events, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Apply validates and applies action for controllerID. On any error the
// session state is unchanged.
func (s *Session) Apply(controllerID string, action Action) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(controllerID, action)
}

func (s *Session) applyLocked(controllerID string, action Action) ([]Event, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if action == nil {
		return nil, ErrUnknownAction
	}
	if !s.game.Seating.HasController(controllerID) {
		return nil, domain.ErrUnknownController
	}
	next := s.game.Clone()
	events, err := s.svc.Apply(next, controllerID, action)
	if err != nil {
		return nil, err
	}
	if err := next.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("%s by %s: %w", ActionName(action), controllerID, err)
	}
	s.game = next
	s.version++
	return events, nil
}

// Snapshot returns the full state as seen by controllerID. It never mutates
// the session.
func (s *Session) Snapshot(controllerID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildSnapshot(s.id, s.version, s.game, controllerID)
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Phase
}

// Version increases with every accepted action.
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Controllers returns the seated controllers in seat order.
func (s *Session) Controllers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Seating.Controllers()
}

// Rules returns the table options.
func (s *Session) Rules() domain.Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Rules
}

// Close rejects every later action.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// AutoActions returns the actions that resolve every decision the game is
// currently waiting on. Nothing is forced once the game is over, so a rematch
// always needs real acknowledgements.
func (s *Session) AutoActions() []ForcedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoActionsLocked()
}

func (s *Session) autoActionsLocked() []ForcedAction {
	g := s.game
	owner := func(seat int) string { return g.Seating[seat].ControllerID }
	switch g.Phase {
	case domain.PhaseDealerSelection:
		out := []ForcedAction{}
		for _, seat := range g.DealerSelection.Pending() {
			guess := s.svc.rng.Intn(domain.MaxDealerGuess) + domain.MinDealerGuess
			out = append(out, ForcedAction{owner(seat), DealerGuess{Seat: seat, Value: guess}})
		}
		return out
	case domain.PhaseBidding:
		seat := g.Bidding.Turn
		if g.Bidding.CanPass(seat) {
			return []ForcedAction{{owner(seat), PlaceBid{Seat: seat, Pass: true}}}
		}
		return []ForcedAction{{owner(seat), PlaceBid{Seat: seat, Amount: g.Bidding.MinimumFor(seat)}}}
	case domain.PhaseTrumpSelection:
		seat := g.Contract.Seat
		trump := domain.TrumpOf(domain.LongestSuit(g.Hands[seat]))
		return []ForcedAction{{owner(seat), SelectTrump{Seat: seat, Trump: trump}}}
	case domain.PhasePlaying:
		seat := g.Trick.NextSeat()
		legal := domain.LegalCards(g.Hands[seat], g.Trick)
		if len(legal) == 0 {
			return nil
		}
		return []ForcedAction{{owner(seat), PlayCard{Seat: seat, Card: lowestCard(legal)}}}
	case domain.PhaseHandComplete:
		out := []ForcedAction{}
		for _, c := range WaitingControllers(g) {
			out = append(out, ForcedAction{c, ReadyForNextHand{}})
		}
		return out
	default:
		return nil
	}
}

// ForceTimeout applies every pending automatic action through the normal
// validated path and returns the combined events.
func (s *Session) ForceTimeout() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []Event
	for _, fa := range s.autoActionsLocked() {
		evs, err := s.applyLocked(fa.ControllerID, fa.Action)
		if err != nil {
			return events, err
		}
		events = append(events, evs...)
	}
	return events, nil
}

func lowestCard(cards []domain.Card) domain.Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Rank < best.Rank || (c.Rank == best.Rank && c.Suit < best.Suit) {
			best = c
		}
	}
	return best
}
