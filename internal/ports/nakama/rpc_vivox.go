package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"bidwhist/internal/app"
	"bidwhist/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// vivoxService is built lazily from the runtime environment. Tests replace it.
var vivoxService *app.VivoxService

type vivoxTokenRequest struct {
	Action  string `json:"action"`
	TableID string `json:"table_id"`
}

type vivoxTokenResponse struct {
	Token   string `json:"token"`
	Channel string `json:"channel,omitempty"`
}

// RpcGetVivoxToken signs a Vivox token for the caller.
// Payload: {"action": "login" | "join", "table_id": "..."}. Join tokens are
// only issued to controllers seated at the table.
func RpcGetVivoxToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", codePermissionDenied)
	}

	req := vivoxTokenRequest{Action: app.VivoxTokenActionLogin}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", codeInvalidArgument)
		}
	}

	svc := vivoxService
	if svc == nil {
		env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
		cfg := config.Get().WithEnv(env)
		svc = app.NewVivoxService(cfg.VivoxSecret, cfg.VivoxIssuer, cfg.VivoxDomain)
	}
	if !svc.Configured() {
		logger.Warn("RpcGetVivoxToken: Vivox is not configured.")
		return "", runtime.NewError("voice chat unavailable", codeUnavailable)
	}

	var (
		resp vivoxTokenResponse
		err  error
	)
	switch req.Action {
	case app.VivoxTokenActionLogin:
		resp.Token, err = svc.LoginToken(userID)
	case app.VivoxTokenActionJoin:
		if req.TableID == "" {
			return "", runtime.NewError(app.ErrVivoxTableRequired.Error(), codeInvalidArgument)
		}
		seated, serr := isSeated(ctx, nk, req.TableID, userID)
		if serr != nil {
			logger.Warn("RpcGetVivoxToken: Seat check for %s on %s failed: %v", userID, req.TableID, serr)
			return "", runtime.NewError("table not found", codeInvalidArgument)
		}
		if !seated {
			return "", runtime.NewError("not seated at table", codePermissionDenied)
		}
		resp.Token, err = svc.TableJoinToken(userID, req.TableID)
		resp.Channel = app.TableChannel(req.TableID)
	default:
		return "", runtime.NewError("unknown action", codeInvalidArgument)
	}
	if err != nil {
		if errors.Is(err, app.ErrVivoxUserRequired) || errors.Is(err, app.ErrVivoxTableRequired) {
			return "", runtime.NewError(err.Error(), codeInvalidArgument)
		}
		logger.Error("RpcGetVivoxToken: Failed to sign token: %v", err)
		return "", runtime.NewError("internal error", codeInternal)
	}

	b, _ := json.Marshal(resp)
	return string(b), nil
}

// isSeated asks the table's match handler whether userID plays there.
func isSeated(ctx context.Context, nk runtime.NakamaModule, tableID, userID string) (bool, error) {
	data, _ := json.Marshal(signalRequest{Type: signalIsSeated, UserID: userID})
	reply, err := nk.MatchSignal(ctx, tableID, string(data))
	if err != nil {
		return false, err
	}
	return reply == "true", nil
}
