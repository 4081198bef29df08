package app

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"bidwhist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotIsIdempotent(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	version := s.Version()

	first := s.Snapshot("a")
	second := s.Snapshot("a")
	assert.Equal(t, first, second)
	assert.Equal(t, version, s.Version())

	first.Seats[0].Hand[0] = domain.Card{}
	assert.NotEqual(t, first, s.Snapshot("a"), "snapshot must not alias session state")
}

func TestSnapshotShowsOnlyOwnHands(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)

	snap := s.Snapshot("a")
	assert.Len(t, snap.Seats[0].Hand, domain.HandSize)
	assert.Len(t, snap.Seats[2].Hand, domain.HandSize)
	assert.Nil(t, snap.Seats[1].Hand)
	assert.Nil(t, snap.Seats[3].Hand)
	for _, seat := range snap.Seats {
		assert.Equal(t, domain.HandSize, seat.CardCount)
	}

	stranger := s.Snapshot("")
	for _, seat := range stranger.Seats {
		assert.Nil(t, seat.Hand)
	}
	assert.Empty(t, stranger.Legal.Seats)
}

func TestSnapshotLegalActions(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)

	b := s.Snapshot("b")
	assert.Equal(t, []int{1}, b.Legal.Seats)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, b.Legal.Bids)
	assert.True(t, b.Legal.CanPass)
	assert.Empty(t, s.Snapshot("a").Legal.Seats)

	playUntil(t, s, func(g *domain.Game) bool { return g.Phase == domain.PhasePlaying })
	seat := s.game.CurrentSeat()
	snap := s.Snapshot(owner(s, seat))
	assert.Equal(t, []int{seat}, snap.Legal.Seats)
	assert.NotEmpty(t, snap.Legal.Cards)
	require.NotNil(t, snap.Contract)
	assert.True(t, snap.Contract.Trump.Valid())
}

func TestSnapshotHidesGuessesUntilReveal(t *testing.T) {
	s := newTestSession(t, domain.DefaultRules())
	_, err := s.Apply("b", DealerGuess{Seat: 1, Value: 77})
	require.NoError(t, err)

	a := s.Snapshot("a")
	assert.True(t, a.Seats[1].Guessed)
	assert.Zero(t, a.Seats[1].Guess)
	assert.Nil(t, a.DealerReveal)
	assert.Equal(t, []int{0, 2}, a.Legal.Seats)
	assert.Equal(t, 77, s.Snapshot("b").Seats[1].Guess)
}

func TestSnapshotCarriesLastTrick(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 3)
	playUntil(t, s, func(g *domain.Game) bool { return len(g.Tricks) == 1 })

	snap := s.Snapshot("a")
	require.NotNil(t, snap.LastTrick)
	assert.Len(t, snap.LastTrick.Plays, domain.NumSeats)
	assert.Equal(t, snap.LastTrick.Winner, snap.Trick.Leader)
	assert.Equal(t, 2, snap.Trick.Number)
	assert.Equal(t, 1, snap.TricksWon[domain.TeamUs]+snap.TricksWon[domain.TeamThem])
}

func TestSessionSerializesConcurrentActions(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Apply("b", PlaceBid{Seat: 1, Amount: 2})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrNotYourTurn)
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, s.Snapshot("b").Bids, 1)
}

func TestSessionClose(t *testing.T) {
	s := newTestSession(t, domain.DefaultRules())
	s.Close()
	_, err := s.Apply("a", DealerGuess{Seat: 0, Value: 1})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestInvariantFailureIsNotApplied(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	s.game.Hands[2] = append(s.game.Hands[2], s.game.Hands[0][0])
	version := s.Version()

	_, err := s.Apply("b", PlaceBid{Seat: 1, Amount: 2})
	require.ErrorIs(t, err, domain.ErrDeckAccounting)
	assert.Equal(t, domain.KindInvariant, domain.KindOf(err))
	assert.False(t, domain.IsUserError(err))
	assert.Equal(t, version, s.Version())
	assert.Empty(t, s.game.Bidding.Bids)
}

func TestTurnClockForcesPendingDecision(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	clock := NewTurnClock(10 * time.Second)
	t0 := time.Unix(1000, 0)

	events, err := clock.Tick(s, t0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, t0.Add(10*time.Second), clock.Deadline())

	events, err = clock.Tick(s, t0.Add(5*time.Second))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = clock.Tick(s, t0.Add(11*time.Second))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, BidPlacedPayload{Seat: 1, Pass: true, NextSeat: 2}, events[0].Payload)
	assert.Equal(t, t0.Add(21*time.Second), clock.Deadline())
}

func TestTurnClockResetsOnActivity(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	clock := NewTurnClock(10 * time.Second)
	t0 := time.Unix(1000, 0)
	_, _ = clock.Tick(s, t0)

	_, err := s.Apply("b", PlaceBid{Seat: 1, Amount: 2})
	require.NoError(t, err)

	events, err := clock.Tick(s, t0.Add(11*time.Second))
	require.NoError(t, err)
	assert.Empty(t, events, "a new decision restarts the clock")
}

func TestTurnClockDisabled(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	clock := NewTurnClock(0)
	events, err := clock.Tick(s, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.True(t, clock.Deadline().IsZero())
}

func TestForceTimeoutCompletesDealerSelection(t *testing.T) {
	s := newTestSession(t, domain.DefaultRules())
	events, err := s.ForceTimeout()
	require.NoError(t, err)
	_, ok := findEvent(events, EventDealerRevealed)
	assert.True(t, ok)
	assert.Equal(t, domain.PhaseBidding, s.Phase())
}

func TestTurnClockObserve(t *testing.T) {
	s := sessionInBidding(t, domain.DefaultRules(), 0)
	clock := NewTurnClock(10 * time.Second)
	t0 := time.Unix(2000, 0)

	assert.True(t, clock.Observe(s, t0))
	assert.False(t, clock.Observe(s, t0.Add(time.Second)))
	assert.Equal(t, t0.Add(10*time.Second), clock.Deadline())

	_, err := s.Apply("b", PlaceBid{Seat: 1, Pass: true})
	require.NoError(t, err)
	assert.True(t, clock.Observe(s, t0.Add(3*time.Second)))
	assert.Equal(t, t0.Add(13*time.Second), clock.Deadline())
}

func TestSessionsSharingServiceRunConcurrently(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	sessions := make([]*Session, 2)
	for i := range sessions {
		s, _, err := NewSession(svc, tableSeating(), domain.DefaultRules())
		require.NoError(t, err)
		sessions[i] = s
	}

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if _, err := s.ForceTimeout(); err != nil {
					t.Errorf("ForceTimeout: %v", err)
					return
				}
			}
		}(s)
	}
	wg.Wait()

	for _, s := range sessions {
		s.mu.Lock()
		assert.NoError(t, s.game.CheckInvariants())
		s.mu.Unlock()
	}
}

func TestServiceForkIsDeterministic(t *testing.T) {
	a := NewService(rand.New(rand.NewSource(9))).Fork()
	b := NewService(rand.New(rand.NewSource(9))).Fork()
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.rng.Intn(100), b.rng.Intn(100))
	}
}
