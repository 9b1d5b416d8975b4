package interfaces

import "context"

// UserDirectory resolves a user identity to a display name.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}
