package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type IssueCredentialRequest struct {
	UserID string               `json:"-"`
	Type   types.CredentialType `json:"type"`
	Value  string               `json:"value"`
}

type GrantPermissionRequest struct {
	UserID    string     `json:"-"`
	RoomID    string     `json:"-"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Credentials administers credentials and room permissions. Credentials are
// never deleted, only deactivated, so past audit rows keep their reference.
type Credentials struct {
	store store.CredentialStore
	settings
}

func NewCredentials(st store.CredentialStore, opts ...Option) *Credentials {
	return &Credentials{store: st, settings: buildSettings(opts)}
}

func (c *Credentials) Issue(ctx context.Context, req IssueCredentialRequest) (types.Credential, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return types.Credential{}, ErrInvalidUserID
	}
	if !req.Type.Valid() {
		return types.Credential{}, ErrInvalidCredentialType
	}
	if strings.TrimSpace(req.Value) == "" {
		return types.Credential{}, ErrInvalidCredentialValue
	}

	cred, err := c.store.IssueCredential(ctx, types.Credential{
		ID:        c.newID(),
		UserID:    userID,
		Type:      req.Type,
		Value:     req.Value,
		Active:    true,
		CreatedAt: c.now(),
	})
	if err != nil {
		return types.Credential{}, err
	}
	c.logger.Info("credential issued",
		zap.String("user_id", userID),
		zap.String("credential_id", cred.ID),
		zap.String("type", string(cred.Type)))
	return cred, nil
}

func (c *Credentials) Deactivate(ctx context.Context, credentialID string) (types.Credential, error) {
	id := strings.TrimSpace(credentialID)
	if id == "" {
		return types.Credential{}, ErrCredentialNotFound
	}
	cred, err := c.store.DeactivateCredential(ctx, id, c.now())
	if err != nil {
		return types.Credential{}, err
	}
	c.logger.Info("credential deactivated", zap.String("credential_id", id))
	return cred, nil
}

// Grant gives a user access to a room, replacing the expiry of an existing
// grant. A nil ExpiresAt never expires.
func (c *Credentials) Grant(ctx context.Context, req GrantPermissionRequest) (types.Permission, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return types.Permission{}, ErrInvalidUserID
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		return types.Permission{}, ErrInvalidRoomID
	}

	var expires *time.Time
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		expires = &t
	}

	return c.store.GrantPermission(ctx, types.Permission{
		ID:        c.newID(),
		UserID:    userID,
		RoomID:    roomID,
		ExpiresAt: expires,
		CreatedAt: c.now(),
	})
}

func (c *Credentials) Revoke(ctx context.Context, userID, roomID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidUserID
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrInvalidRoomID
	}
	return c.store.RevokePermission(ctx, userID, roomID)
}
