package wire

import (
	"encoding/json"
	"fmt"

	"bidwhist/internal/app"
	"bidwhist/internal/domain"
)

const (
	ActionDealerGuess      = "dealer_guess"
	ActionPlaceBid         = "place_bid"
	ActionSelectTrump      = "select_trump"
	ActionPlayCard         = "play_card"
	ActionReadyForNextHand = "ready_for_next_hand"
)

type CardDTO struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// ActionDTO is the inbound form of every game action. Type selects which
// fields are read.
type ActionDTO struct {
	Type   string   `json:"type"`
	Seat   int      `json:"seat"`
	Value  int      `json:"value,omitempty"`
	Amount int      `json:"amount,omitempty"`
	Pass   bool     `json:"pass,omitempty"`
	Trump  string   `json:"trump,omitempty"`
	Card   *CardDTO `json:"card,omitempty"`
}

type ClaimSeatRequest struct {
	Seat int    `json:"seat"`
	Team string `json:"team"`
}

type ReleaseSeatRequest struct {
	Seat int `json:"seat"`
}

type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// ToApp converts the DTO into an engine action.
func (a ActionDTO) ToApp() (app.Action, error) {
	switch a.Type {
	case ActionDealerGuess:
		return app.DealerGuess{Seat: a.Seat, Value: a.Value}, nil
	case ActionPlaceBid:
		return app.PlaceBid{Seat: a.Seat, Amount: a.Amount, Pass: a.Pass}, nil
	case ActionSelectTrump:
		t, err := domain.ParseTrump(a.Trump)
		if err != nil {
			return nil, err
		}
		return app.SelectTrump{Seat: a.Seat, Trump: t}, nil
	case ActionPlayCard:
		if a.Card == nil {
			return nil, fmt.Errorf("%w: card required", domain.ErrInvalidCard)
		}
		c, err := a.Card.ToDomain()
		if err != nil {
			return nil, err
		}
		return app.PlayCard{Seat: a.Seat, Card: c}, nil
	case ActionReadyForNextHand:
		return app.ReadyForNextHand{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", app.ErrUnknownAction, a.Type)
	}
}

// DecodeAction parses the body of an action op code. The op code decides the
// action type; a type field in the body is ignored.
func DecodeAction(op int64, data []byte) (app.Action, error) {
	typ, ok := ActionType[op]
	if !ok {
		return nil, fmt.Errorf("%w: op %d", app.ErrUnknownAction, op)
	}
	var dto ActionDTO
	if len(data) > 0 {
		if err := json.Unmarshal(data, &dto); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	dto.Type = typ
	return dto.ToApp()
}

// ActionFromApp is the inverse of ToApp, used by clients and tests.
func ActionFromApp(a app.Action) ActionDTO {
	switch v := a.(type) {
	case app.DealerGuess:
		return ActionDTO{Type: ActionDealerGuess, Seat: v.Seat, Value: v.Value}
	case app.PlaceBid:
		return ActionDTO{Type: ActionPlaceBid, Seat: v.Seat, Amount: v.Amount, Pass: v.Pass}
	case app.SelectTrump:
		return ActionDTO{Type: ActionSelectTrump, Seat: v.Seat, Trump: v.Trump.String()}
	case app.PlayCard:
		return ActionDTO{Type: ActionPlayCard, Seat: v.Seat, Card: CardFromDomain(v.Card)}
	case app.ReadyForNextHand:
		return ActionDTO{Type: ActionReadyForNextHand}
	default:
		return ActionDTO{Type: "unknown"}
	}
}

func (c CardDTO) ToDomain() (domain.Card, error) {
	s, err := domain.ParseSuit(c.Suit)
	if err != nil {
		return domain.Card{}, err
	}
	r, err := domain.ParseRank(c.Rank)
	if err != nil {
		return domain.Card{}, err
	}
	return domain.Card{Suit: s, Rank: r}, nil
}

func CardFromDomain(c domain.Card) *CardDTO {
	return &CardDTO{Suit: c.Suit.String(), Rank: c.Rank.String()}
}

func CardsFromDomain(cards []domain.Card) []CardDTO {
	if cards == nil {
		return nil
	}
	out := make([]CardDTO, 0, len(cards))
	for _, c := range cards {
		out = append(out, *CardFromDomain(c))
	}
	return out
}

// DecodeClaimSeat parses a seat claim.
func DecodeClaimSeat(data []byte) (int, domain.Team, error) {
	var req ClaimSeatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return 0, domain.TeamNone, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	team, err := domain.ParseTeam(req.Team)
	if err != nil {
		return 0, domain.TeamNone, err
	}
	return req.Seat, team, nil
}

// DecodeReleaseSeat parses a seat release.
func DecodeReleaseSeat(data []byte) (int, error) {
	var req ReleaseSeatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return req.Seat, nil
}

// DecodeSetReady parses a ready toggle. An empty body means ready.
func DecodeSetReady(data []byte) (bool, error) {
	if len(data) == 0 {
		return true, nil
	}
	var req SetReadyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return req.Ready, nil
}
