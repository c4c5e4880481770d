package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/sqlstore"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// FindCredential / FindPermission
// ═══════════════════════════════════════════════════════════════════════════

func TestCredentialStore_FindCredential_MatchesValueAndType(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewCredentialStore(newTestConn(t, conn))
	ctx := context.Background()

	m, err := cs.FindCredential(ctx, types.CredentialNFCTag, db.DevAdminTag)
	require.NoError(t, err)
	assert.Equal(t, db.DevAdminUserID, m.User.ID)
	assert.Equal(t, "Ana Souza", m.User.Name)
	assert.True(t, m.User.IsAdmin)
	assert.True(t, m.Credential.Active)

	_, err = cs.FindCredential(ctx, types.CredentialFingerprint, db.DevAdminTag)
	assert.ErrorIs(t, err, store.ErrCredentialNotFound, "type must match too")

	_, err = cs.FindCredential(ctx, types.CredentialNFCTag, "11:22")
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

func TestCredentialStore_FindPermission(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewCredentialStore(newTestConn(t, conn))
	ctx := context.Background()

	p, err := cs.FindPermission(ctx, db.DevAdminUserID, db.DevRoomID)
	require.NoError(t, err)
	assert.Nil(t, p.ExpiresAt)

	_, err = cs.FindPermission(ctx, db.DevGuestUserID, db.DevRoomID)
	assert.ErrorIs(t, err, store.ErrPermissionNotFound)
}

// ═══════════════════════════════════════════════════════════════════════════
// Administration
// ═══════════════════════════════════════════════════════════════════════════

func TestCredentialStore_IssueAndDeactivate(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewCredentialStore(newTestConn(t, conn))
	ctx := context.Background()

	c, err := cs.IssueCredential(ctx, types.Credential{
		ID: "cred-fp", UserID: db.DevGuestUserID, Type: types.CredentialFingerprint,
		Value: "fp-0007", Active: true, CreatedAt: t0,
	})
	require.NoError(t, err)
	assert.True(t, c.Active)

	_, err = cs.IssueCredential(ctx, types.Credential{
		ID: "cred-dup", UserID: db.DevAdminUserID, Type: types.CredentialNFCTag,
		Value: "fp-0007", Active: true, CreatedAt: t0,
	})
	assert.ErrorIs(t, err, store.ErrDuplicateCredential, "values are unique across types")

	_, err = cs.IssueCredential(ctx, types.Credential{
		ID: "cred-x", UserID: "nobody", Type: types.CredentialNFCTag, Value: "00:00", CreatedAt: t0,
	})
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	off, err := cs.DeactivateCredential(ctx, "cred-fp", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, off.Active)
	assert.True(t, off.UpdatedAt.Equal(t0.Add(time.Hour)))

	// Deactivation is logical; the row is still resolvable.
	m, err := cs.FindCredential(ctx, types.CredentialFingerprint, "fp-0007")
	require.NoError(t, err)
	assert.False(t, m.Credential.Active)

	_, err = cs.DeactivateCredential(ctx, "missing", t0)
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

func TestCredentialStore_GrantPermission_ReplacesExpiry(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewCredentialStore(newTestConn(t, conn))
	ctx := context.Background()

	first, err := cs.GrantPermission(ctx, types.Permission{
		ID: "perm-1", UserID: db.DevGuestUserID, RoomID: db.DevRoomID,
		ExpiresAt: ptr(t0.Add(24 * time.Hour)), CreatedAt: t0,
	})
	require.NoError(t, err)
	require.NotNil(t, first.ExpiresAt)

	second, err := cs.GrantPermission(ctx, types.Permission{
		ID: "perm-2", UserID: db.DevGuestUserID, RoomID: db.DevRoomID, CreatedAt: t0.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "perm-1", second.ID, "grant replaces the existing row")
	assert.Nil(t, second.ExpiresAt)

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM user_room_permissions WHERE user_id = ?`, db.DevGuestUserID).Scan(&count))
	assert.Equal(t, 1, count)

	_, err = cs.GrantPermission(ctx, types.Permission{ID: "perm-3", UserID: db.DevGuestUserID, RoomID: "nowhere", CreatedAt: t0})
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
}

func TestCredentialStore_RevokePermission(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewCredentialStore(newTestConn(t, conn))
	ctx := context.Background()

	require.NoError(t, cs.RevokePermission(ctx, db.DevAdminUserID, db.DevRoomID))
	_, err := cs.FindPermission(ctx, db.DevAdminUserID, db.DevRoomID)
	assert.ErrorIs(t, err, store.ErrPermissionNotFound)

	assert.ErrorIs(t, cs.RevokePermission(ctx, db.DevAdminUserID, db.DevRoomID), store.ErrPermissionNotFound)
}

func TestCredentialStore_ListUsers_HasCredentials(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	ctx := context.Background()
	_, err := conn.ExecContext(ctx, `INSERT INTO users(user_id, name, is_admin, created_at_ms) VALUES ('u-bare', 'Zed', 0, 0)`)
	require.NoError(t, err)
	cs := sqlstore.NewCredentialStore(newTestConn(t, conn))

	users, err := cs.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	byID := map[string]types.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	assert.True(t, byID[db.DevAdminUserID].HasCredentials)
	assert.True(t, byID[db.DevGuestUserID].HasCredentials)
	assert.False(t, byID["u-bare"].HasCredentials)
}
