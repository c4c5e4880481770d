package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type CredentialStore interface {
	// FindCredential matches value and type exactly, active or not.
	FindCredential(ctx context.Context, t types.CredentialType, value string) (types.CredentialMatch, error)

	// FindPermission returns the first permission of user for room.
	FindPermission(ctx context.Context, userID, roomID string) (types.Permission, error)

	ListUsers(ctx context.Context) ([]types.User, error)
	IssueCredential(ctx context.Context, c types.Credential) (types.Credential, error)
	DeactivateCredential(ctx context.Context, id string, t time.Time) (types.Credential, error)

	// GrantPermission creates the (user, room) permission or replaces its expiry.
	GrantPermission(ctx context.Context, p types.Permission) (types.Permission, error)
	RevokePermission(ctx context.Context, userID, roomID string) error
}
