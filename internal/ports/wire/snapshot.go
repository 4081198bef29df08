package wire

import (
	"bidwhist/internal/app"
	"bidwhist/internal/domain"
)

type SeatDTO struct {
	Seat         int       `json:"seat"`
	ControllerID string    `json:"controller_id"`
	DisplayName  string    `json:"display_name,omitempty"`
	Team         string    `json:"team"`
	HandIndex    int       `json:"hand_index"`
	CardCount    int       `json:"card_count"`
	Hand         []CardDTO `json:"hand,omitempty"`
	Guessed      bool      `json:"guessed"`
	Guess        int       `json:"guess,omitempty"`
	Connected    bool      `json:"connected"`
}

type BidDTO struct {
	Seat   int  `json:"seat"`
	Amount int  `json:"amount,omitempty"`
	Pass   bool `json:"pass,omitempty"`
}

type PlayDTO struct {
	Seat int     `json:"seat"`
	Card CardDTO `json:"card"`
}

type TrickDTO struct {
	Number int       `json:"number"`
	Leader int       `json:"leader"`
	Plays  []PlayDTO `json:"plays"`
	Winner int       `json:"winner"`
}

type ContractDTO struct {
	Seat  int    `json:"seat"`
	Bid   int    `json:"bid"`
	Team  string `json:"team"`
	Trump string `json:"trump,omitempty"`
}

type DealerRevealDTO struct {
	Target  int   `json:"target"`
	Guesses []int `json:"guesses"`
	Dealer  int   `json:"dealer"`
}

type HandResultDTO struct {
	BiddingTeam  string `json:"bidding_team"`
	Bid          int    `json:"bid"`
	TricksNeeded int    `json:"tricks_needed"`
	TricksWon    []int  `json:"tricks_won"`
	BidMade      bool   `json:"bid_made"`
	Points       []int  `json:"points"`
}

type LegalDTO struct {
	Seats        []int     `json:"seats"`
	Bids         []int     `json:"bids,omitempty"`
	CanPass      bool      `json:"can_pass,omitempty"`
	TrumpChoices []string  `json:"trump_choices,omitempty"`
	Cards        []CardDTO `json:"cards,omitempty"`
	CanReady     bool      `json:"can_ready,omitempty"`
}

// SnapshotDTO is the reconnect-safe full state for one controller.
type SnapshotDTO struct {
	SessionID    string           `json:"session_id"`
	Version      int64            `json:"version"`
	Viewer       string           `json:"viewer"`
	Phase        string           `json:"phase"`
	PointsToWin  int              `json:"points_to_win"`
	Dealer       int              `json:"dealer"`
	HandNumber   int              `json:"hand_number"`
	CurrentSeat  int              `json:"current_seat"`
	TurnDeadline int64            `json:"turn_deadline,omitempty"`
	Seats        []SeatDTO        `json:"seats"`
	DealerReveal *DealerRevealDTO `json:"dealer_reveal,omitempty"`
	Bids         []BidDTO         `json:"bids"`
	HighBid      int              `json:"high_bid"`
	HighSeat     int              `json:"high_seat"`
	Contract     *ContractDTO     `json:"contract,omitempty"`
	Trick        TrickDTO         `json:"trick"`
	TricksWon    []int            `json:"tricks_won"`
	LastTrick    *TrickDTO        `json:"last_trick,omitempty"`
	LastResult   *HandResultDTO   `json:"last_result,omitempty"`
	Scores       []int            `json:"scores"`
	Winner       string           `json:"winner,omitempty"`
	Ready        []string         `json:"ready"`
	Legal        LegalDTO         `json:"legal"`
}

// PresenceInfo lets a transport decorate seats with what it knows about the
// controllers behind them.
type PresenceInfo struct {
	DisplayName string
	Connected   bool
}

// SnapshotFromApp maps a snapshot. presence may be nil.
func SnapshotFromApp(s app.Snapshot, presence map[string]PresenceInfo) SnapshotDTO {
	dto := SnapshotDTO{
		SessionID:   s.SessionID,
		Version:     s.Version,
		Viewer:      s.Viewer,
		Phase:       string(s.Phase),
		PointsToWin: s.PointsToWin,
		Dealer:      s.Dealer,
		HandNumber:  s.HandNumber,
		CurrentSeat: s.CurrentSeat,
		Seats:       make([]SeatDTO, 0, len(s.Seats)),
		Bids:        make([]BidDTO, 0, len(s.Bids)),
		HighBid:     s.HighBid,
		HighSeat:    s.HighSeat,
		Trick:       TrickFromDomain(s.Trick),
		TricksWon:   s.TricksWon[:],
		Scores:      s.Scores[:],
		Ready:       s.Ready,
		Legal: LegalDTO{
			Seats:    s.Legal.Seats,
			Bids:     s.Legal.Bids,
			CanPass:  s.Legal.CanPass,
			Cards:    CardsFromDomain(s.Legal.Cards),
			CanReady: s.Legal.CanReady,
		},
	}
	for _, t := range s.Legal.TrumpChoices {
		dto.Legal.TrumpChoices = append(dto.Legal.TrumpChoices, t.String())
	}
	for _, seat := range s.Seats {
		info := presence[seat.ControllerID]
		dto.Seats = append(dto.Seats, SeatDTO{
			Seat:         seat.Seat,
			ControllerID: seat.ControllerID,
			DisplayName:  info.DisplayName,
			Team:         seat.Team.String(),
			HandIndex:    seat.HandIndex,
			CardCount:    seat.CardCount,
			Hand:         CardsFromDomain(seat.Hand),
			Guessed:      seat.Guessed,
			Guess:        seat.Guess,
			Connected:    info.Connected,
		})
	}
	for _, b := range s.Bids {
		dto.Bids = append(dto.Bids, BidDTO{Seat: b.Seat, Amount: b.Amount, Pass: b.Pass})
	}
	if s.DealerReveal != nil {
		dto.DealerReveal = &DealerRevealDTO{
			Target:  s.DealerReveal.Target,
			Guesses: append([]int{}, s.DealerReveal.Guesses[:]...),
			Dealer:  s.DealerReveal.Dealer,
		}
	}
	if s.Contract != nil {
		c := ContractDTO{Seat: s.Contract.Seat, Bid: s.Contract.Bid, Trump: s.Contract.Trump.String()}
		if s.Contract.Seat >= 0 && s.Contract.Seat < len(s.Seats) {
			c.Team = s.Seats[s.Contract.Seat].Team.String()
		}
		dto.Contract = &c
	}
	if s.LastTrick != nil {
		t := TrickFromDomain(*s.LastTrick)
		dto.LastTrick = &t
	}
	if s.LastResult != nil {
		r := HandResultFromDomain(*s.LastResult)
		dto.LastResult = &r
	}
	if s.Winner.Valid() {
		dto.Winner = s.Winner.String()
	}
	return dto
}

func TrickFromDomain(t domain.Trick) TrickDTO {
	return TrickDTO{Number: t.Number, Leader: t.Leader, Plays: PlaysFromDomain(t.Plays), Winner: t.Winner}
}

func PlaysFromDomain(plays []domain.Play) []PlayDTO {
	out := make([]PlayDTO, 0, len(plays))
	for _, p := range plays {
		out = append(out, PlayDTO{Seat: p.Seat, Card: *CardFromDomain(p.Card)})
	}
	return out
}

func HandResultFromDomain(r domain.HandResult) HandResultDTO {
	return HandResultDTO{
		BiddingTeam:  r.BiddingTeam.String(),
		Bid:          r.Bid,
		TricksNeeded: r.TricksNeeded,
		TricksWon:    append([]int{}, r.TricksWon[:]...),
		BidMade:      r.BidMade,
		Points:       append([]int{}, r.Points[:]...),
	}
}
