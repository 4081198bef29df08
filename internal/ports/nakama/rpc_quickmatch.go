package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bidwhist/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// quickMatchQuery finds tables still in their lobby with an open seat and
// the requested points target.
func quickMatchQuery(points int) string {
	return fmt.Sprintf("+label.%s:%s +label.%s:%s +label.%s:>=1 +label.%s:%d",
		MatchLabelKey_Game, matchLabelGame,
		MatchLabelKey_Phase, matchLabelLobby,
		MatchLabelKey_OpenSeats,
		MatchLabelKey_PointsToWin, points)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	points, err := parseTableRequest(ctx, payload)
	if err != nil {
		return "", err
	}

	limit := 10
	authoritative := true
	minSize := 0
	maxSize := domain.NumSeats - 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, quickMatchQuery(points))
	if err != nil {
		logger.Error("rpcQuickMatch [User:%s]: Failed to list matches: %v", userID, err)
		return "", runtime.NewError("could not list tables", codeInternal)
	}

	if len(matches) > 0 {
		logger.Info("rpcQuickMatch [User:%s]: Found table %s", userID, matches[0].MatchId)
		b, _ := json.Marshal(TableResponse{MatchID: matches[0].MatchId, PointsToWin: points})
		return string(b), nil
	}

	// Seats are claimed in the match itself, so a new table is just created.
	matchID, err := nk.MatchCreate(ctx, MatchNameBidWhist, map[string]interface{}{MatchLabelKey_PointsToWin: points})
	if err != nil {
		logger.Error("rpcQuickMatch [User:%s]: Failed to create match: %v", userID, err)
		return "", runtime.NewError("could not create table", codeInternal)
	}
	logger.Info("rpcQuickMatch [User:%s]: Created table %s", userID, matchID)

	b, _ := json.Marshal(TableResponse{MatchID: matchID, IsNew: true, PointsToWin: points})
	return string(b), nil
}
