package app

import (
	"sort"

	"bidwhist/internal/domain"
)

// SeatView is one seat as seen by a viewer. Hand and Guess are only filled
// for seats the viewer controls.
type SeatView struct {
	Seat         int
	ControllerID string
	Team         domain.Team
	HandIndex    int
	CardCount    int
	Hand         []domain.Card
	Guessed      bool
	Guess        int
}

// DealerRevealView is the outcome of dealer selection.
type DealerRevealView struct {
	Target  int
	Guesses [domain.NumSeats]int
	Dealer  int
}

// LegalActions lists what the viewer may do right now.
type LegalActions struct {
	// Seats are the viewer's seats that owe a decision.
	Seats        []int
	Bids         []int
	CanPass      bool
	TrumpChoices []domain.Trump
	Cards        []domain.Card
	CanReady     bool
}

// Snapshot is the full state of a session for one controller, enough to
// resume after a reconnect.
type Snapshot struct {
	SessionID   string
	Version     int64
	Viewer      string
	Phase       domain.Phase
	PointsToWin int
	Dealer      int
	HandNumber  int
	CurrentSeat int
	Seats       [domain.NumSeats]SeatView

	DealerReveal *DealerRevealView
	Bids         []domain.Bid
	HighBid      int
	HighSeat     int
	Contract     *domain.Contract

	Trick     domain.Trick
	TricksWon [domain.NumTeams]int
	LastTrick *domain.Trick

	LastResult *domain.HandResult
	Scores     [domain.NumTeams]int
	Winner     domain.Team
	Ready      []string

	Legal LegalActions
}

func buildSnapshot(id string, version int64, g *domain.Game, viewer string) Snapshot {
	snap := Snapshot{
		SessionID:   id,
		Version:     version,
		Viewer:      viewer,
		Phase:       g.Phase,
		PointsToWin: g.Rules.PointsToWin,
		Dealer:      g.Dealer,
		HandNumber:  g.HandNumber,
		CurrentSeat: g.CurrentSeat(),
		Bids:        append([]domain.Bid{}, g.Bidding.Bids...),
		HighBid:     g.Bidding.High,
		HighSeat:    -1,
		Trick:       copyTrick(g.Trick),
		TricksWon:   g.TricksWon,
		Scores:      g.Scores,
		Winner:      g.Winner,
		Ready:       []string{},
	}
	if g.Phase == domain.PhaseBidding || g.Phase == domain.PhaseTrumpSelection || g.Phase == domain.PhasePlaying {
		snap.HighSeat = g.Bidding.HighSeat
	}

	for seat, st := range g.Seating {
		view := SeatView{
			Seat:         seat,
			ControllerID: st.ControllerID,
			Team:         st.Team,
			HandIndex:    st.HandIndex,
			CardCount:    len(g.Hands[seat]),
			Guessed:      g.DealerSelection.Guesses[seat] != 0,
		}
		if viewer != "" && st.ControllerID == viewer {
			view.Hand = append([]domain.Card{}, g.Hands[seat]...)
			view.Guess = g.DealerSelection.Guesses[seat]
		}
		snap.Seats[seat] = view
	}

	if g.DealerSelection.Revealed {
		snap.DealerReveal = &DealerRevealView{
			Target:  g.DealerSelection.Target,
			Guesses: g.DealerSelection.Guesses,
			Dealer:  g.DealerSelection.Dealer,
		}
	}
	if g.Contract.Seat >= 0 {
		c := g.Contract
		snap.Contract = &c
	}
	if g.LastTrick != nil {
		t := copyTrick(*g.LastTrick)
		snap.LastTrick = &t
	}
	if g.LastResult != nil {
		r := *g.LastResult
		snap.LastResult = &r
	}
	for c, ok := range g.Ready {
		if ok {
			snap.Ready = append(snap.Ready, c)
		}
	}
	sort.Strings(snap.Ready)

	snap.Legal = legalActions(g, viewer)
	return snap
}

func legalActions(g *domain.Game, viewer string) LegalActions {
	legal := LegalActions{Seats: []int{}}
	if viewer == "" {
		return legal
	}
	switch g.Phase {
	case domain.PhaseDealerSelection:
		for _, seat := range g.DealerSelection.Pending() {
			if g.Seating.Owns(viewer, seat) {
				legal.Seats = append(legal.Seats, seat)
			}
		}
	case domain.PhaseBidding:
		seat := g.Bidding.Turn
		if g.Seating.Owns(viewer, seat) {
			legal.Seats = append(legal.Seats, seat)
			legal.Bids = g.Bidding.LegalBids(seat)
			legal.CanPass = g.Bidding.CanPass(seat)
		}
	case domain.PhaseTrumpSelection:
		if g.Seating.Owns(viewer, g.Contract.Seat) {
			legal.Seats = append(legal.Seats, g.Contract.Seat)
			legal.TrumpChoices = []domain.Trump{
				domain.TrumpClubs, domain.TrumpDiamonds, domain.TrumpHearts, domain.TrumpSpades, domain.NoTrump,
			}
		}
	case domain.PhasePlaying:
		seat := g.Trick.NextSeat()
		if seat >= 0 && g.Seating.Owns(viewer, seat) {
			legal.Seats = append(legal.Seats, seat)
			legal.Cards = domain.LegalCards(g.Hands[seat], g.Trick)
		}
	case domain.PhaseHandComplete, domain.PhaseGameComplete:
		legal.CanReady = g.Seating.HasController(viewer) && !g.Ready[viewer]
	}
	return legal
}

func copyTrick(t domain.Trick) domain.Trick {
	t.Plays = append([]domain.Play{}, t.Plays...)
	return t
}
