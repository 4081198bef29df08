package wire

import (
	"bidwhist/internal/app"
	"bidwhist/internal/domain"
)

// EventDTO wraps one engine event. Data holds the payload struct matching Type.
type EventDTO struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type PhaseChangedData struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

type DealerGuessData struct {
	Seat    int   `json:"seat"`
	Pending []int `json:"pending"`
}

type HandDealtData struct {
	HandNumber int               `json:"hand_number"`
	Dealer     int               `json:"dealer"`
	Hands      map[int][]CardDTO `json:"hands"`
}

type BidPlacedData struct {
	Seat     int  `json:"seat"`
	Amount   int  `json:"amount,omitempty"`
	Pass     bool `json:"pass,omitempty"`
	NextSeat int  `json:"next_seat"`
}

type RedealData struct {
	Dealer  int `json:"dealer"`
	Redeals int `json:"redeals"`
}

type TrumpSelectedData struct {
	Seat  int    `json:"seat"`
	Trump string `json:"trump"`
}

type CardPlayedData struct {
	Seat        int     `json:"seat"`
	Card        CardDTO `json:"card"`
	TrickNumber int     `json:"trick_number"`
	NextSeat    int     `json:"next_seat"`
}

type TrickCompletedData struct {
	Number      int       `json:"number"`
	WinnerSeat  int       `json:"winner_seat"`
	WinningTeam string    `json:"winning_team"`
	Plays       []PlayDTO `json:"plays"`
	TricksWon   []int     `json:"tricks_won"`
}

type HandCompletedData struct {
	HandNumber int           `json:"hand_number"`
	Result     HandResultDTO `json:"result"`
	Scores     []int         `json:"scores"`
}

type GameCompletedData struct {
	Winner string `json:"winner"`
	Scores []int  `json:"scores"`
}

type ControllerReadyData struct {
	ControllerID string   `json:"controller_id"`
	Waiting      []string `json:"waiting"`
}

type MatchRestartedData struct {
	PointsToWin int `json:"points_to_win"`
}

// EventFromApp maps an engine event to its wire form and op code.
func EventFromApp(ev app.Event) (int64, EventDTO) {
	dto := EventDTO{Type: string(ev.Kind)}
	op := OpEvent
	switch p := ev.Payload.(type) {
	case app.PhaseChangedPayload:
		dto.Data = PhaseChangedData{From: string(p.From), To: string(p.To)}
	case app.DealerGuessRecordedPayload:
		dto.Data = DealerGuessData{Seat: p.Seat, Pending: p.Pending}
	case app.DealerRevealedPayload:
		op = OpDealerReveal
		dto.Data = DealerRevealDTO{Target: p.Target, Guesses: append([]int{}, p.Guesses[:]...), Dealer: p.Dealer}
	case app.HandDealtPayload:
		hands := make(map[int][]CardDTO, len(p.Hands))
		for seat, cards := range p.Hands {
			hands[seat] = CardsFromDomain(cards)
		}
		dto.Data = HandDealtData{HandNumber: p.HandNumber, Dealer: p.Dealer, Hands: hands}
	case app.BidPlacedPayload:
		dto.Data = BidPlacedData{Seat: p.Seat, Amount: p.Amount, Pass: p.Pass, NextSeat: p.NextSeat}
	case app.BiddingRedealPayload:
		dto.Data = RedealData{Dealer: p.Dealer, Redeals: p.Redeals}
	case app.ContractWonPayload:
		dto.Data = ContractDTO{Seat: p.Seat, Bid: p.Bid, Team: p.Team.String()}
	case app.TrumpSelectedPayload:
		dto.Data = TrumpSelectedData{Seat: p.Seat, Trump: p.Trump.String()}
	case app.CardPlayedPayload:
		dto.Data = CardPlayedData{Seat: p.Seat, Card: *CardFromDomain(p.Card), TrickNumber: p.TrickNumber, NextSeat: p.NextSeat}
	case app.TrickCompletedPayload:
		op = OpTrickComplete
		dto.Data = TrickCompletedData{
			Number:      p.Number,
			WinnerSeat:  p.WinnerSeat,
			WinningTeam: p.WinningTeam.String(),
			Plays:       PlaysFromDomain(p.Plays),
			TricksWon:   append([]int{}, p.TricksWon[:]...),
		}
	case app.HandCompletedPayload:
		op = OpHandComplete
		dto.Data = HandCompletedData{
			HandNumber: p.HandNumber,
			Result:     HandResultFromDomain(p.Result),
			Scores:     append([]int{}, p.Scores[:]...),
		}
	case app.GameCompletedPayload:
		op = OpGameComplete
		dto.Data = GameCompletedData{Winner: p.Winner.String(), Scores: append([]int{}, p.Scores[:]...)}
	case app.ControllerReadyPayload:
		dto.Data = ControllerReadyData{ControllerID: p.ControllerID, Waiting: p.Waiting}
	case app.MatchRestartedPayload:
		dto.Data = MatchRestartedData{PointsToWin: p.PointsToWin}
	}
	return op, dto
}

// WelcomeDTO tells a websocket client which controller id it was given, so
// it can reconnect to the same seats.
type WelcomeDTO struct {
	ControllerID string `json:"controller_id"`
	TableID      string `json:"table_id"`
	DisplayName  string `json:"display_name"`
}

// LobbyDTO is the pre-game seat map broadcast on every lobby change.
type LobbyDTO struct {
	TableID     string    `json:"table_id"`
	PointsToWin int       `json:"points_to_win"`
	Started     bool      `json:"started"`
	OpenSeats   int       `json:"open_seats"`
	Seats       []SeatDTO `json:"seats"`
	Ready       []string  `json:"ready"`
}

// LobbyFromDomain maps a lobby. presence may be nil.
func LobbyFromDomain(tableID string, pointsToWin int, l *domain.Lobby, started bool, presence map[string]PresenceInfo) LobbyDTO {
	dto := LobbyDTO{
		TableID:     tableID,
		PointsToWin: pointsToWin,
		Started:     started,
		OpenSeats:   l.OpenSeats(),
		Seats:       make([]SeatDTO, 0, domain.NumSeats),
		Ready:       []string{},
	}
	for i, s := range l.Seats {
		seat := SeatDTO{Seat: i, HandIndex: s.HandIndex}
		if s.Claimed() {
			info := presence[s.ControllerID]
			seat.ControllerID = s.ControllerID
			seat.Team = s.Team.String()
			seat.DisplayName = info.DisplayName
			seat.Connected = info.Connected
		}
		dto.Seats = append(dto.Seats, seat)
	}
	for _, c := range l.Seats.Controllers() {
		if l.Ready[c] {
			dto.Ready = append(dto.Ready, c)
		}
	}
	return dto
}
