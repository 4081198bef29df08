package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"bidwhist/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Nakama RPC error codes (gRPC status codes).
const (
	codeInvalidArgument  = 3
	codePermissionDenied = 7
	codeInternal         = 13
	codeUnavailable      = 14
)

// TableRequest is the optional payload of create_table and quick_match.
type TableRequest struct {
	PointsToWin int `json:"points_to_win"`
}

// TableResponse is the payload returned to clients for a table to join.
type TableResponse struct {
	MatchID     string `json:"match_id"`
	IsNew       bool   `json:"is_new"`
	PointsToWin int    `json:"points_to_win"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcCreateTable, rpcCreateTable); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVivoxToken, RpcGetVivoxToken)
}

// parseTableRequest decodes payload and resolves the points target against
// the table configuration. An empty payload selects the default.
func parseTableRequest(ctx context.Context, payload string) (int, error) {
	var req TableRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return 0, runtime.NewError("invalid payload", codeInvalidArgument)
		}
	}
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	rules, err := config.Get().WithEnv(env).Rules(req.PointsToWin)
	if err != nil {
		return 0, runtime.NewError(err.Error(), codeInvalidArgument)
	}
	return rules.PointsToWin, nil
}

func rpcCreateTable(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	points, err := parseTableRequest(ctx, payload)
	if err != nil {
		return "", err
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameBidWhist, map[string]interface{}{MatchLabelKey_PointsToWin: points})
	if err != nil {
		logger.Error("rpcCreateTable [User:%s]: Failed to create match: %v", userID, err)
		return "", runtime.NewError("could not create table", codeInternal)
	}
	logger.Info("rpcCreateTable [User:%s]: Created table %s (points_to_win=%d)", userID, matchID, points)

	b, _ := json.Marshal(TableResponse{MatchID: matchID, IsNew: true, PointsToWin: points})
	return string(b), nil
}
