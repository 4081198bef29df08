package nakama

const (
	// RpcQuickMatch finds a table in its lobby with open seats, or creates one.
	RpcQuickMatch = "quick_match"
	// RpcCreateTable always creates a fresh table.
	RpcCreateTable = "create_table"
	// RpcVivoxToken signs a voice token for the caller.
	RpcVivoxToken = "vivox_token"

	// MatchNameBidWhist is the authoritative match handler name registered with Nakama.
	MatchNameBidWhist = "bidwhist_table"
)

// Match label keys. The label is JSON so quick match can filter on it.
const (
	MatchLabelKey_Game        = "game"
	MatchLabelKey_OpenSeats   = "open"
	MatchLabelKey_Phase       = "phase"
	MatchLabelKey_PointsToWin = "points_to_win"

	matchLabelGame  = "bidwhist"
	matchLabelLobby = "lobby"
)

// Signals understood by MatchSignal.
const (
	signalIsSeated = "is_seated"
)

const tickRate = 1
