package domain

// BookTricks is the base number of tricks every contract must exceed.
const BookTricks = 6

// HandResult is the scored outcome of one hand.
type HandResult struct {
	BiddingTeam  Team
	Bid          int
	TricksNeeded int
	TricksWon    [NumTeams]int
	BidMade      bool
	Points       [NumTeams]int
}

// ScoreHand scores a finished hand. The bidding team scores +bid when it
// reaches 6+bid tricks and -bid otherwise. The defending team scores one
// point for every trick it took beyond the 7-bid it could concede while
// still letting the contract make, which is zero whenever the bid is made.
func ScoreHand(biddingTeam Team, bid int, tricksWon [NumTeams]int) HandResult {
	res := HandResult{
		BiddingTeam:  biddingTeam,
		Bid:          bid,
		TricksNeeded: BookTricks + bid,
		TricksWon:    tricksWon,
	}
	defenders := biddingTeam.Other()
	res.BidMade = tricksWon[biddingTeam] >= res.TricksNeeded
	if res.BidMade {
		res.Points[biddingTeam] = bid
	} else {
		res.Points[biddingTeam] = -bid
	}
	concede := TricksPerHand - res.TricksNeeded
	if over := tricksWon[defenders] - concede; over > 0 {
		res.Points[defenders] = over
	}
	return res
}

// MatchWinner reports the winning team once either score reaches
// pointsToWin. The higher score wins; an exact tie goes to the bidding team
// of the deciding hand.
func MatchWinner(scores [NumTeams]int, pointsToWin int, biddingTeam Team) (Team, bool) {
	us, them := scores[TeamUs] >= pointsToWin, scores[TeamThem] >= pointsToWin
	if !us && !them {
		return TeamNone, false
	}
	switch {
	case scores[TeamUs] > scores[TeamThem]:
		return TeamUs, true
	case scores[TeamThem] > scores[TeamUs]:
		return TeamThem, true
	default:
		return biddingTeam, true
	}
}
