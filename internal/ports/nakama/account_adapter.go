package nakama

import (
	"context"
	"fmt"

	"bidwhist/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaAccountAdapter implements ports.AccountPort on Nakama's account API.
type NakamaAccountAdapter struct {
	nk runtime.NakamaModule
}

func NewNakamaAccountAdapter(nk runtime.NakamaModule) *NakamaAccountAdapter {
	return &NakamaAccountAdapter{nk: nk}
}

func (a *NakamaAccountAdapter) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, username, nil, displayName, "", "", "", "")
}

func (a *NakamaAccountAdapter) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}
	users, err := a.nk.UsersGetId(ctx, userIDs, nil)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for _, u := range users {
		if u.GetDisplayName() != "" {
			names[u.GetId()] = u.GetDisplayName()
		}
	}
	return names, nil
}

var _ ports.AccountPort = (*NakamaAccountAdapter)(nil)
