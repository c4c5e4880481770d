package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type CredentialStore struct {
	Conn
}

func NewCredentialStore(c Conn) *CredentialStore {
	return &CredentialStore{Conn: c}
}

const credentialColumns = `c.credential_id, c.user_id, c.type, c.value, c.is_active, c.created_at_ms, c.updated_at_ms`

func scanCredential(row scanner, c *types.Credential, extra ...any) error {
	var created, updated int64
	dest := append([]any{&c.ID, &c.UserID, &c.Type, &c.Value, &c.Active, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	c.CreatedAt = fromMs(created)
	c.UpdatedAt = fromMs(updated)
	return nil
}

func (s *CredentialStore) FindCredential(ctx context.Context, t types.CredentialType, value string) (types.CredentialMatch, error) {
	var m types.CredentialMatch
	row := s.DB.QueryRowContext(ctx, s.q(`
SELECT `+credentialColumns+`, u.name, u.is_admin
FROM access_credentials c
JOIN users u ON u.user_id = c.user_id
WHERE c.value = ? AND c.type = ?
LIMIT 1;
`), value, string(t))

	err := scanCredential(row, &m.Credential, &m.User.Name, &m.User.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CredentialMatch{}, store.ErrCredentialNotFound
	}
	if err != nil {
		return types.CredentialMatch{}, fmt.Errorf("FindCredential query: %w", err)
	}
	m.User.ID = m.Credential.UserID
	m.User.HasCredentials = true
	return m, nil
}

func (s *CredentialStore) FindPermission(ctx context.Context, userID, roomID string) (types.Permission, error) {
	p, err := findPermission(ctx, s.DB, s.Conn, userID, roomID)
	if err != nil && !errors.Is(err, store.ErrPermissionNotFound) {
		return types.Permission{}, fmt.Errorf("FindPermission: %w", err)
	}
	return p, err
}

func findPermission(ctx context.Context, q queryer, c Conn, userID, roomID string) (types.Permission, error) {
	var (
		p       types.Permission
		expires sql.NullInt64
		created int64
	)
	err := q.QueryRowContext(ctx, c.q(`
SELECT permission_id, user_id, room_id, expires_at_ms, created_at_ms
FROM user_room_permissions
WHERE user_id = ? AND room_id = ?
ORDER BY created_at_ms
LIMIT 1;
`), userID, roomID).Scan(&p.ID, &p.UserID, &p.RoomID, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Permission{}, store.ErrPermissionNotFound
	}
	if err != nil {
		return types.Permission{}, err
	}
	p.ExpiresAt = timePtr(expires)
	p.CreatedAt = fromMs(created)
	return p, nil
}

func (s *CredentialStore) ListUsers(ctx context.Context) ([]types.User, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT u.user_id, u.name, u.is_admin,
       EXISTS (SELECT 1 FROM access_credentials c WHERE c.user_id = u.user_id)
FROM users u
ORDER BY u.name, u.user_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListUsers query: %w", err)
	}
	defer rows.Close()

	var out []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.IsAdmin, &u.HasCredentials); err != nil {
			return nil, fmt.Errorf("ListUsers scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUsers rows: %w", err)
	}
	return out, nil
}

func (s *CredentialStore) IssueCredential(ctx context.Context, c types.Credential) (types.Credential, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	ms := toMs(c.CreatedAt)

	err := s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := requireRow(ctx, tx, s.Conn, `SELECT 1 FROM users WHERE user_id = ?;`, store.ErrUserNotFound, c.UserID); err != nil {
			return err
		}

		var one int
		err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM access_credentials WHERE value = ?;`), c.Value).Scan(&one)
		switch {
		case err == nil:
			return store.ErrDuplicateCredential
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("IssueCredential duplicate check: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO access_credentials(credential_id, user_id, type, value, is_active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`), c.ID, c.UserID, string(c.Type), c.Value, c.Active, ms, ms); err != nil {
			return fmt.Errorf("IssueCredential insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Credential{}, err
	}

	c.CreatedAt = fromMs(ms)
	c.UpdatedAt = c.CreatedAt
	return c, nil
}

func (s *CredentialStore) DeactivateCredential(ctx context.Context, id string, t time.Time) (types.Credential, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}

	var out types.Credential
	err := s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
UPDATE access_credentials SET is_active = ?, updated_at_ms = ? WHERE credential_id = ?;
`), false, toMs(t), id)
		if err != nil {
			return fmt.Errorf("DeactivateCredential update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrCredentialNotFound
		}

		row := tx.QueryRowContext(ctx, s.q(`
SELECT `+credentialColumns+` FROM access_credentials c WHERE c.credential_id = ?;
`), id)
		if err := scanCredential(row, &out); err != nil {
			return fmt.Errorf("DeactivateCredential reload: %w", err)
		}
		return nil
	})
	return out, err
}

func (s *CredentialStore) GrantPermission(ctx context.Context, p types.Permission) (types.Permission, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var out types.Permission
	err := s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := requireRow(ctx, tx, s.Conn, `SELECT 1 FROM users WHERE user_id = ?;`, store.ErrUserNotFound, p.UserID); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, s.Conn, `SELECT 1 FROM rooms WHERE room_id = ?;`, store.ErrRoomNotFound, p.RoomID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO user_room_permissions(permission_id, user_id, room_id, expires_at_ms, created_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id, room_id) DO UPDATE SET expires_at_ms = excluded.expires_at_ms;
`), p.ID, p.UserID, p.RoomID, nullMs(p.ExpiresAt), toMs(p.CreatedAt)); err != nil {
			return fmt.Errorf("GrantPermission upsert: %w", err)
		}

		got, err := findPermission(ctx, tx, s.Conn, p.UserID, p.RoomID)
		if err != nil {
			return fmt.Errorf("GrantPermission reload: %w", err)
		}
		out = got
		return nil
	})
	return out, err
}

func (s *CredentialStore) RevokePermission(ctx context.Context, userID, roomID string) error {
	return s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
DELETE FROM user_room_permissions WHERE user_id = ? AND room_id = ?;
`), userID, roomID)
		if err != nil {
			return fmt.Errorf("RevokePermission delete: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrPermissionNotFound
		}
		return nil
	})
}

// requireRow maps an empty result of an existence probe to notFound.
func requireRow(ctx context.Context, tx *sql.Tx, c Conn, query string, notFound error, args ...any) error {
	var one int
	err := tx.QueryRowContext(ctx, c.q(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("probe %q: %w", query, err)
	}
	return nil
}
