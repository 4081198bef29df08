package wire

// Op codes shared by every transport. Client messages carry a JSON body
// matching the request type named in the comment.
const (
	// Client -> Server
	OpClaimSeat        int64 = 1  // ClaimSeatRequest
	OpReleaseSeat      int64 = 2  // ReleaseSeatRequest
	OpSetReady         int64 = 3  // SetReadyRequest
	OpDealerGuess      int64 = 10 // ActionDTO
	OpPlaceBid         int64 = 11 // ActionDTO
	OpSelectTrump      int64 = 12 // ActionDTO
	OpPlayCard         int64 = 13 // ActionDTO
	OpReadyForNextHand int64 = 14 // ActionDTO (empty body allowed)
	OpRequestSnapshot  int64 = 15 // empty

	// Server -> Client
	OpLobby         int64 = 100 // LobbyDTO
	OpSnapshot      int64 = 101 // SnapshotDTO, per controller
	OpEvent         int64 = 102 // EventDTO
	OpError         int64 = 103 // ErrorDTO, offender only
	OpWelcome       int64 = 104 // WelcomeDTO, standalone server only
	OpDealerReveal  int64 = 110 // EventDTO
	OpTrickComplete int64 = 111 // EventDTO
	OpHandComplete  int64 = 112 // EventDTO
	OpGameComplete  int64 = 113 // EventDTO
)

// ActionType maps the action op codes to ActionDTO.Type.
var ActionType = map[int64]string{
	OpDealerGuess:      ActionDealerGuess,
	OpPlaceBid:         ActionPlaceBid,
	OpSelectTrump:      ActionSelectTrump,
	OpPlayCard:         ActionPlayCard,
	OpReadyForNextHand: ActionReadyForNextHand,
}
