package app

import (
	"math/rand"
	"sync"
	"time"

	"bidwhist/internal/domain"
)

// Service contains Bid Whist use-cases operating on domain state. Every method
// mutates the game it is handed; callers that need rejections to leave state
// untouched pass a clone. A Service may be shared by any number of sessions.
type Service struct {
	rng *lockedRand
}

// NewService constructs a Service with provided rng or a time-seeded default.
// The Service takes ownership of rng.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: &lockedRand{r: rng}}
}

// Fork returns a Service with its own source seeded from s, so tables that
// never share a game do not contend on one lock.
func (s *Service) Fork() *Service {
	return NewService(rand.New(rand.NewSource(s.rng.Int63())))
}

// lockedRand serializes access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Int63() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int63()
}

// Shuffle holds the lock for the whole permutation; swap must not draw from
// the same source.
func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// NewGame opens a game at dealer selection for a finalized seating.
func (s *Service) NewGame(seating domain.Seating, rules domain.Rules) (*domain.Game, []Event, error) {
	game, err := domain.NewGame(seating, rules)
	if err != nil {
		return nil, nil, err
	}
	events := []Event{newEvent(PhaseChangedPayload{To: domain.PhaseDealerSelection})}
	return game, events, nil
}

// Apply dispatches action for controllerID.
func (s *Service) Apply(game *domain.Game, controllerID string, action Action) ([]Event, error) {
	switch a := action.(type) {
	case DealerGuess:
		return s.SubmitDealerGuess(game, controllerID, a.Seat, a.Value)
	case PlaceBid:
		return s.PlaceBid(game, controllerID, a.Seat, a.Amount, a.Pass)
	case SelectTrump:
		return s.SelectTrump(game, controllerID, a.Seat, a.Trump)
	case PlayCard:
		return s.PlayCard(game, controllerID, a.Seat, a.Card)
	case ReadyForNextHand:
		return s.ReadyForNextHand(game, controllerID)
	default:
		return nil, ErrUnknownAction
	}
}

// SubmitDealerGuess records a guess and, once all four are in, reveals the
// dealer and deals the first hand.
func (s *Service) SubmitDealerGuess(game *domain.Game, controllerID string, seat, value int) ([]Event, error) {
	if game.Phase != domain.PhaseDealerSelection {
		return nil, domain.ErrWrongPhase
	}
	if err := authorizeSeat(game, controllerID, seat); err != nil {
		return nil, err
	}
	if err := game.DealerSelection.Submit(seat, value); err != nil {
		return nil, err
	}
	events := []Event{newEvent(DealerGuessRecordedPayload{
		Seat:    seat,
		Pending: game.DealerSelection.Pending(),
	})}
	if !game.DealerSelection.Complete() {
		return events, nil
	}

	events = append(events, setPhase(game, domain.PhaseDealerReveal))
	target := s.rng.Intn(domain.MaxDealerGuess) + domain.MinDealerGuess
	game.Dealer = game.DealerSelection.Reveal(target)
	events = append(events, newEvent(DealerRevealedPayload{
		Target:  target,
		Guesses: game.DealerSelection.Guesses,
		Dealer:  game.Dealer,
	}))
	return append(events, s.startHand(game, false)...), nil
}

// PlaceBid applies a bid or pass for seat. A finished round either sets the
// contract or, when every seat passed, redeals with the same dealer.
func (s *Service) PlaceBid(game *domain.Game, controllerID string, seat, amount int, pass bool) ([]Event, error) {
	if game.Phase != domain.PhaseBidding {
		return nil, domain.ErrWrongPhase
	}
	if err := authorizeSeat(game, controllerID, seat); err != nil {
		return nil, err
	}
	if err := game.Bidding.Place(seat, amount, pass); err != nil {
		return nil, err
	}
	bid := game.Bidding.Bids[len(game.Bidding.Bids)-1]
	next := game.Bidding.Turn
	if game.Bidding.Finished() {
		next = -1
	}
	events := []Event{newEvent(BidPlacedPayload{Seat: seat, Amount: bid.Amount, Pass: bid.Pass, NextSeat: next})}
	if !game.Bidding.Finished() {
		return events, nil
	}

	winner, high, ok := game.Bidding.Winner()
	if !ok {
		game.Redeals++
		events = append(events, newEvent(BiddingRedealPayload{Dealer: game.Dealer, Redeals: game.Redeals}))
		return append(events, s.startHand(game, true)...), nil
	}
	game.Contract = domain.Contract{Seat: winner, Bid: high}
	events = append(events, newEvent(ContractWonPayload{Seat: winner, Bid: high, Team: game.Seating.TeamOf(winner)}))
	return append(events, setPhase(game, domain.PhaseTrumpSelection)), nil
}

// SelectTrump sets the contract's trump and opens the first trick, led by the
// contract seat.
func (s *Service) SelectTrump(game *domain.Game, controllerID string, seat int, trump domain.Trump) ([]Event, error) {
	if game.Phase != domain.PhaseTrumpSelection {
		return nil, domain.ErrWrongPhase
	}
	if err := authorizeSeat(game, controllerID, seat); err != nil {
		return nil, err
	}
	if !trump.Valid() {
		return nil, domain.ErrInvalidTrump
	}
	if seat != game.Contract.Seat {
		return nil, domain.ErrNotContractSeat
	}
	game.Contract.Trump = trump
	game.Trick = domain.NewTrick(1, game.Contract.Seat)
	events := []Event{newEvent(TrumpSelectedPayload{Seat: seat, Trump: trump})}
	return append(events, setPhase(game, domain.PhasePlaying)), nil
}

// PlayCard plays card from seat. The fourth card of a trick resolves it;
// the thirteenth trick scores the hand.
func (s *Service) PlayCard(game *domain.Game, controllerID string, seat int, card domain.Card) ([]Event, error) {
	if game.Phase != domain.PhasePlaying {
		return nil, domain.ErrWrongPhase
	}
	if err := authorizeSeat(game, controllerID, seat); err != nil {
		return nil, err
	}
	if err := domain.CheckPlay(game.Hands[seat], game.Trick, seat, card); err != nil {
		return nil, err
	}
	hand, ok := domain.RemoveCard(game.Hands[seat], card)
	if !ok {
		return nil, domain.ErrCardNotInHand
	}
	game.Hands[seat] = hand
	game.Trick.Plays = append(game.Trick.Plays, domain.Play{Seat: seat, Card: card})

	events := []Event{newEvent(CardPlayedPayload{
		Seat:        seat,
		Card:        card,
		TrickNumber: game.Trick.Number,
		NextSeat:    game.Trick.NextSeat(),
	})}
	if !game.Trick.Complete() {
		return events, nil
	}
	return append(events, s.completeTrick(game)...), nil
}

// ReadyForNextHand records controllerID's acknowledgement. When every
// controller has acknowledged, the next hand is dealt, or a new match begins
// if the game was over.
func (s *Service) ReadyForNextHand(game *domain.Game, controllerID string) ([]Event, error) {
	if game.Phase != domain.PhaseHandComplete && game.Phase != domain.PhaseGameComplete {
		return nil, domain.ErrWrongPhase
	}
	if !game.Seating.HasController(controllerID) {
		return nil, domain.ErrUnknownController
	}
	if game.Ready[controllerID] {
		return nil, domain.ErrAlreadyReady
	}
	game.Ready[controllerID] = true
	waiting := WaitingControllers(game)
	events := []Event{newEvent(ControllerReadyPayload{ControllerID: controllerID, Waiting: waiting})}
	if len(waiting) > 0 {
		return events, nil
	}

	if game.Phase == domain.PhaseGameComplete {
		return append(events, s.restartMatch(game)...), nil
	}
	game.Dealer = domain.NextSeat(game.Dealer)
	return append(events, s.startHand(game, false)...), nil
}

// WaitingControllers lists the controllers that have not acknowledged yet, in
// seat order.
func WaitingControllers(game *domain.Game) []string {
	out := []string{}
	for _, c := range game.Seating.Controllers() {
		if !game.Ready[c] {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) startHand(game *domain.Game, redeal bool) []Event {
	events := []Event{setPhase(game, domain.PhaseDealing)}
	if !redeal {
		game.HandNumber++
		game.Redeals = 0
	}
	game.Hands = domain.Deal(game.Dealer, s.rng)
	game.Bidding = domain.NewBidding(game.Dealer, game.Rules.ForceDealerBid)
	game.Contract = domain.Contract{Seat: -1}
	game.Trick = domain.NewTrick(0, -1)
	game.Tricks = nil
	game.TricksWon = [domain.NumTeams]int{}
	game.LastTrick = nil
	game.Ready = map[string]bool{}

	for _, c := range game.Seating.Controllers() {
		hands := map[int][]domain.Card{}
		for _, seat := range game.Seating.SeatsOf(c) {
			hands[seat] = append([]domain.Card{}, game.Hands[seat]...)
		}
		events = append(events, newEvent(HandDealtPayload{
			ControllerID: c,
			HandNumber:   game.HandNumber,
			Dealer:       game.Dealer,
			Hands:        hands,
		}, c))
	}
	return append(events, setPhase(game, domain.PhaseBidding))
}

func (s *Service) completeTrick(game *domain.Game) []Event {
	events := []Event{setPhase(game, domain.PhaseTrickComplete)}
	winner := game.Trick.Resolve(game.Contract.Trump)
	team := game.Seating.TeamOf(winner)
	game.TricksWon[team]++
	game.Tricks = append(game.Tricks, game.Trick)
	last := game.Trick
	last.Plays = append([]domain.Play{}, game.Trick.Plays...)
	game.LastTrick = &last

	events = append(events, newEvent(TrickCompletedPayload{
		Number:      last.Number,
		WinnerSeat:  winner,
		WinningTeam: team,
		Plays:       append([]domain.Play{}, last.Plays...),
		TricksWon:   game.TricksWon,
	}))

	if len(game.Tricks) == domain.TricksPerHand {
		return append(events, s.completeHand(game)...)
	}
	game.Trick = domain.NewTrick(last.Number+1, winner)
	return append(events, setPhase(game, domain.PhasePlaying))
}

func (s *Service) completeHand(game *domain.Game) []Event {
	game.Trick = domain.NewTrick(0, -1)
	biddingTeam := game.BiddingTeam()
	result := domain.ScoreHand(biddingTeam, game.Contract.Bid, game.TricksWon)
	for t := range game.Scores {
		game.Scores[t] += result.Points[t]
	}
	game.LastResult = &result
	game.Ready = map[string]bool{}

	events := []Event{
		setPhase(game, domain.PhaseHandComplete),
		newEvent(HandCompletedPayload{HandNumber: game.HandNumber, Result: result, Scores: game.Scores}),
	}
	winner, over := domain.MatchWinner(game.Scores, game.Rules.PointsToWin, biddingTeam)
	if !over {
		return events
	}
	game.Winner = winner
	events = append(events, setPhase(game, domain.PhaseGameComplete))
	return append(events, newEvent(GameCompletedPayload{Winner: winner, Scores: game.Scores}))
}

func (s *Service) restartMatch(game *domain.Game) []Event {
	game.Scores = [domain.NumTeams]int{}
	game.Winner = domain.TeamNone
	game.HandNumber = 0
	game.Redeals = 0
	game.Dealer = -1
	game.DealerSelection = domain.NewDealerSelection()
	game.Hands = [domain.NumSeats][]domain.Card{}
	game.Bidding = domain.Bidding{}
	game.Contract = domain.Contract{Seat: -1}
	game.Trick = domain.NewTrick(0, -1)
	game.Tricks = nil
	game.TricksWon = [domain.NumTeams]int{}
	game.LastTrick = nil
	game.LastResult = nil
	game.Ready = map[string]bool{}
	return []Event{
		newEvent(MatchRestartedPayload{PointsToWin: game.Rules.PointsToWin}),
		setPhase(game, domain.PhaseDealerSelection),
	}
}

func setPhase(game *domain.Game, phase domain.Phase) Event {
	from := game.Phase
	game.Phase = phase
	return newEvent(PhaseChangedPayload{From: from, To: phase})
}

// authorizeSeat checks that controllerID plays seat.
func authorizeSeat(game *domain.Game, controllerID string, seat int) error {
	if !domain.ValidSeat(seat) {
		return domain.ErrSeatOutOfRange
	}
	if !game.Seating.HasController(controllerID) {
		return domain.ErrUnknownController
	}
	if !game.Seating.Owns(controllerID, seat) {
		return domain.ErrNotSeatOwner
	}
	return nil
}
