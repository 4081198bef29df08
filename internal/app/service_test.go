package app

import (
	"math/rand"
	"testing"

	"bidwhist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableSeating puts controller "a" on both "us" seats and "b", "c" on the
// "them" seats.
func tableSeating() domain.Seating {
	return domain.Seating{
		{ControllerID: "a", Team: domain.TeamUs, HandIndex: 0},
		{ControllerID: "b", Team: domain.TeamThem, HandIndex: 0},
		{ControllerID: "a", Team: domain.TeamUs, HandIndex: 1},
		{ControllerID: "c", Team: domain.TeamThem, HandIndex: 0},
	}
}

func newTestSession(t *testing.T, rules domain.Rules) *Session {
	t.Helper()
	s, events, err := NewSession(NewService(rand.New(rand.NewSource(11))), tableSeating(), rules)
	require.NoError(t, err)
	require.Len(t, events, 1)
	return s
}

// sessionInBidding skips dealer selection and deals a hand with dealer.
func sessionInBidding(t *testing.T, rules domain.Rules, dealer int) *Session {
	t.Helper()
	s := newTestSession(t, rules)
	s.game.Dealer = dealer
	s.svc.startHand(s.game, false)
	require.Equal(t, domain.PhaseBidding, s.game.Phase)
	return s
}

func owner(s *Session, seat int) string {
	return s.game.Seating[seat].ControllerID
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func findEvent(events []Event, kind EventKind) (Event, bool) {
	for _, ev := range events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

func TestDealerSelectionRevealsAndDeals(t *testing.T) {
	s := newTestSession(t, domain.DefaultRules())
	guesses := []int{12, 50, 51, 90}

	var last []Event
	for seat, g := range guesses {
		events, err := s.Apply(owner(s, seat), DealerGuess{Seat: seat, Value: g})
		require.NoError(t, err, "seat %d", seat)
		last = events
	}

	ev, ok := findEvent(last, EventDealerRevealed)
	require.True(t, ok, "kinds %v", kinds(last))
	reveal := ev.Payload.(DealerRevealedPayload)
	assert.Equal(t, [domain.NumSeats]int{12, 50, 51, 90}, reveal.Guesses)
	assert.Equal(t, domain.SelectDealer(reveal.Guesses, reveal.Target), reveal.Dealer)
	assert.GreaterOrEqual(t, reveal.Target, 1)
	assert.LessOrEqual(t, reveal.Target, 100)

	assert.Equal(t, domain.PhaseBidding, s.Phase())
	assert.Equal(t, reveal.Dealer, s.game.Dealer)
	assert.Equal(t, 1, s.game.HandNumber)

	dealt := 0
	for _, ev := range last {
		if ev.Kind != EventHandDealt {
			continue
		}
		dealt++
		p := ev.Payload.(HandDealtPayload)
		require.Equal(t, []string{p.ControllerID}, ev.Recipients)
		for seat, hand := range p.Hands {
			assert.Equal(t, p.ControllerID, owner(s, seat))
			assert.Len(t, hand, domain.HandSize)
		}
	}
	assert.Equal(t, 3, dealt, "one hand_dealt per controller")

	var phases []domain.Phase
	for _, ev := range last {
		if p, ok := ev.Payload.(PhaseChangedPayload); ok {
			phases = append(phases, p.To)
		}
	}
	assert.Equal(t, []domain.Phase{domain.PhaseDealerReveal, domain.PhaseDealing, domain.PhaseBidding}, phases)
}

func TestDealerGuessRejections(t *testing.T) {
	s := newTestSession(t, domain.DefaultRules())
	_, err := s.Apply("a", DealerGuess{Seat: 0, Value: 30})
	require.NoError(t, err)

	tests := []struct {
		name string
		ctrl string
		act  Action
		kind domain.ErrorKind
		err  error
	}{
		{name: "second guess", ctrl: "a", act: DealerGuess{Seat: 0, Value: 31}, kind: domain.KindRule, err: domain.ErrAlreadyGuessed},
		{name: "out of range", ctrl: "a", act: DealerGuess{Seat: 2, Value: 101}, kind: domain.KindValidation, err: domain.ErrGuessOutOfRange},
		{name: "foreign seat", ctrl: "b", act: DealerGuess{Seat: 2, Value: 5}, kind: domain.KindTurn, err: domain.ErrNotSeatOwner},
		{name: "stranger", ctrl: "z", act: DealerGuess{Seat: 1, Value: 5}, kind: domain.KindTurn, err: domain.ErrUnknownController},
		{name: "wrong phase", ctrl: "b", act: PlaceBid{Seat: 1, Amount: 2}, kind: domain.KindState, err: domain.ErrWrongPhase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Snapshot(tt.ctrl)
			_, err := s.Apply(tt.ctrl, tt.act)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Equal(t, before, s.Snapshot(tt.ctrl), "state changed after rejection")
		})
	}
	assert.Equal(t, 30, s.game.DealerSelection.Guesses[0])
}

func TestBiddingDealerTieWinsContract(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 3)

	steps := []PlaceBid{
		{Seat: 0, Pass: true},
		{Seat: 1, Amount: 3},
		{Seat: 2, Pass: true},
		{Seat: 3, Amount: 3},
	}
	var events []Event
	for _, st := range steps {
		var err error
		events, err = s.Apply(owner(s, st.Seat), st)
		require.NoError(t, err)
	}
	ev, ok := findEvent(events, EventContractWon)
	require.True(t, ok)
	assert.Equal(t, ContractWonPayload{Seat: 3, Bid: 3, Team: domain.TeamThem}, ev.Payload)
	assert.Equal(t, domain.PhaseTrumpSelection, s.Phase())
}

func TestBiddingOutOfTurnIsTurnViolation(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	_, err := s.Apply("c", PlaceBid{Seat: 3, Amount: 2})
	require.ErrorIs(t, err, domain.ErrNotYourTurn)
	assert.Equal(t, domain.KindTurn, domain.KindOf(err))

	_, err = s.Apply("b", PlaceBid{Seat: 1, Amount: 9})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestAllPassRedealsWithSameDealer(t *testing.T) {
	s := sessionInBidding(t, domain.Rules{PointsToWin: 11}, 2)
	before := s.game.Hands

	var events []Event
	for _, seat := range []int{3, 0, 1, 2} {
		var err error
		events, err = s.Apply(owner(s, seat), PlaceBid{Seat: seat, Pass: true})
		require.NoError(t, err)
	}
	ev, ok := findEvent(events, EventBiddingRedeal)
	require.True(t, ok, "kinds %v", kinds(events))
	assert.Equal(t, BiddingRedealPayload{Dealer: 2, Redeals: 1}, ev.Payload)
	assert.Equal(t, domain.PhaseBidding, s.Phase())
	assert.Equal(t, 2, s.game.Dealer)
	assert.Equal(t, 1, s.game.HandNumber)
	assert.Equal(t, 3, s.game.Bidding.Turn)
	assert.NotEqual(t, before, s.game.Hands)
}

func TestForcedDealerCannotPass(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 2)
	for _, seat := range []int{3, 0, 1} {
		_, err := s.Apply(owner(s, seat), PlaceBid{Seat: seat, Pass: true})
		require.NoError(t, err)
	}
	_, err := s.Apply("a", PlaceBid{Seat: 2, Pass: true})
	require.ErrorIs(t, err, domain.ErrMustBid)
	_, err = s.Apply("a", PlaceBid{Seat: 2, Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.Contract{Seat: 2, Bid: 1}, s.game.Contract)
}

func TestSelectTrump(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	for _, st := range []PlaceBid{{Seat: 1, Amount: 2}, {Seat: 2, Pass: true}, {Seat: 3, Pass: true}, {Seat: 0, Pass: true}} {
		_, err := s.Apply(owner(s, st.Seat), st)
		require.NoError(t, err)
	}
	require.Equal(t, 1, s.game.Contract.Seat)

	_, err := s.Apply("a", SelectTrump{Seat: 0, Trump: domain.NoTrump})
	require.ErrorIs(t, err, domain.ErrNotContractSeat)
	assert.Equal(t, domain.KindRule, domain.KindOf(err))

	_, err = s.Apply("a", SelectTrump{Seat: 1, Trump: domain.NoTrump})
	require.ErrorIs(t, err, domain.ErrNotSeatOwner)

	_, err = s.Apply("b", SelectTrump{Seat: 1, Trump: domain.TrumpUnset})
	require.ErrorIs(t, err, domain.ErrInvalidTrump)

	events, err := s.Apply("b", SelectTrump{Seat: 1, Trump: domain.TrumpOf(domain.SuitHearts)})
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventTrumpSelected, EventPhaseChanged}, kinds(events))
	assert.Equal(t, domain.PhasePlaying, s.Phase())
	assert.Equal(t, 1, s.game.Trick.Leader)
	assert.Equal(t, 1, s.game.CurrentSeat())
}

func TestPlayCardRejections(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	_, err := s.Apply("b", PlayCard{Seat: 1, Card: s.game.Hands[1][0]})
	require.ErrorIs(t, err, domain.ErrWrongPhase)
	assert.Equal(t, domain.KindState, domain.KindOf(err))

	playUntil(t, s, func(g *domain.Game) bool { return g.Phase == domain.PhasePlaying })
	seat := s.game.CurrentSeat()
	other := domain.NextSeat(seat)
	_, err = s.Apply(owner(s, other), PlayCard{Seat: other, Card: s.game.Hands[other][0]})
	require.ErrorIs(t, err, domain.ErrNotYourTurn)
	_, err = s.Apply(owner(s, seat), PlayCard{Seat: seat, Card: s.game.Hands[other][0]})
	require.ErrorIs(t, err, domain.ErrCardNotInHand)
}

func TestFullHandScoresAndWaitsForReady(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 1)
	var all []Event
	all = append(all, playUntil(t, s, func(g *domain.Game) bool { return g.Phase == domain.PhaseHandComplete })...)

	g := s.game
	assert.Len(t, g.Tricks, domain.TricksPerHand)
	assert.Equal(t, domain.TricksPerHand, g.TricksWon[domain.TeamUs]+g.TricksWon[domain.TeamThem])
	for seat := range g.Hands {
		assert.Empty(t, g.Hands[seat])
	}

	trickEvents := 0
	for _, ev := range all {
		if p, ok := ev.Payload.(TrickCompletedPayload); ok {
			trickEvents++
			assert.Len(t, p.Plays, domain.NumSeats)
		}
	}
	assert.Equal(t, domain.TricksPerHand, trickEvents)

	ev, ok := findEvent(all, EventHandCompleted)
	require.True(t, ok)
	hc := ev.Payload.(HandCompletedPayload)
	want := domain.ScoreHand(g.BiddingTeam(), g.Contract.Bid, g.TricksWon)
	assert.Equal(t, want, hc.Result)
	assert.Equal(t, want.Points, g.Scores)

	events, err := s.Apply("a", ReadyForNextHand{})
	require.NoError(t, err)
	assert.Equal(t, ControllerReadyPayload{ControllerID: "a", Waiting: []string{"b", "c"}}, events[0].Payload)
	_, err = s.Apply("a", ReadyForNextHand{})
	require.ErrorIs(t, err, domain.ErrAlreadyReady)

	_, err = s.Apply("b", ReadyForNextHand{})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseHandComplete, s.Phase())
	_, err = s.Apply("c", ReadyForNextHand{})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseBidding, s.Phase())
	assert.Equal(t, 2, s.game.Dealer, "dealer rotates left")
	assert.Equal(t, 2, s.game.HandNumber)
	assert.Equal(t, want.Points, s.game.Scores, "scores carry over")
}

func TestGameCompleteAndRematch(t *testing.T) {
	s := sessionInBidding(t, domain.Rules{PointsToWin: 11, ForceDealerBid: true}, 0)
	s.game.Scores = [domain.NumTeams]int{10, 10}

	events := playUntil(t, s, func(g *domain.Game) bool { return g.Phase == domain.PhaseHandComplete || g.Phase == domain.PhaseGameComplete })
	require.Equal(t, domain.PhaseGameComplete, s.Phase())
	ev, ok := findEvent(events, EventGameCompleted)
	require.True(t, ok)
	done := ev.Payload.(GameCompletedPayload)
	assert.True(t, done.Winner.Valid())
	assert.Equal(t, s.game.Winner, done.Winner)

	assert.Empty(t, s.AutoActions(), "rematch is never forced")
	_, err := s.Apply("b", PlayCard{Seat: 1})
	require.ErrorIs(t, err, domain.ErrWrongPhase)

	for _, c := range []string{"a", "b"} {
		_, err := s.Apply(c, ReadyForNextHand{})
		require.NoError(t, err)
	}
	events, err = s.Apply("c", ReadyForNextHand{})
	require.NoError(t, err)
	_, ok = findEvent(events, EventMatchRestarted)
	assert.True(t, ok)
	assert.Equal(t, domain.PhaseDealerSelection, s.Phase())
	assert.Equal(t, [domain.NumTeams]int{}, s.game.Scores)
	assert.Equal(t, domain.TeamNone, s.game.Winner)
	assert.Equal(t, -1, s.game.Dealer)
}

// playUntil drives the session with automatic actions until done reports true.
func playUntil(t *testing.T, s *Session, done func(*domain.Game) bool) []Event {
	t.Helper()
	var all []Event
	for i := 0; i < 500; i++ {
		if done(s.game) {
			return all
		}
		actions := s.AutoActions()
		require.NotEmpty(t, actions, "stuck in %s", s.game.Phase)
		events, err := s.Apply(actions[0].ControllerID, actions[0].Action)
		require.NoError(t, err)
		all = append(all, events...)
	}
	t.Fatalf("game did not finish, phase %s", s.game.Phase)
	return nil
}
