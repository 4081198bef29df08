package nakama

import (
	"context"

	"bidwhist/internal/ports/wire"

	"github.com/heroiclabs/nakama-common/runtime"
)

// presenceInfo describes every controller the match has seen, for seat
// decoration in lobby and snapshot messages.
func presenceInfo(state *MatchState) map[string]wire.PresenceInfo {
	out := make(map[string]wire.PresenceInfo, len(state.Names))
	for id, name := range state.Names {
		_, connected := state.Presences[id]
		out[id] = wire.PresenceInfo{DisplayName: name, Connected: connected}
	}
	return out
}

// presencesFor resolves user ids to connected presences, skipping the rest.
func presencesFor(state *MatchState, userIDs []string) []runtime.Presence {
	out := make([]runtime.Presence, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := state.Presences[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// intParam reads a numeric match parameter. Params that came through JSON
// arrive as float64.
func intParam(params map[string]interface{}, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// lookupDisplayNames resolves account display names for presences. On failure
// callers fall back to usernames.
func lookupDisplayNames(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, presences []runtime.Presence) map[string]string {
	if nk == nil || len(presences) == 0 {
		return nil
	}
	ids := make([]string, 0, len(presences))
	for _, p := range presences {
		ids = append(ids, p.GetUserId())
	}
	names, err := NewNakamaAccountAdapter(nk).DisplayNames(ctx, ids)
	if err != nil {
		logger.Warn("Failed to load display names: %v", err)
		return nil
	}
	return names
}
