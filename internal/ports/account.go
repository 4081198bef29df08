package ports

import "context"

// AccountPort is what the table needs from the account system.
type AccountPort interface {
	// UpdateProfile sets the username and display name of userID.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
	// DisplayNames resolves the display names of userIDs. Unknown users and
	// users without a display name are left out of the result.
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}
