package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Fixed identifiers of the dev fixture, handy for manual testing against a
// local broker.
const (
	DevBlockID      = "0195a3a0-0000-7000-8000-000000000001"
	DevRoomID       = "0195a3a0-0000-7000-8000-000000000010"
	DevSpareRoomID  = "0195a3a0-0000-7000-8000-000000000011"
	DevAdminUserID  = "0195a3a0-0000-7000-8000-000000000100"
	DevGuestUserID  = "0195a3a0-0000-7000-8000-000000000101"
	DevControllerID = "controller-lab-101"
	DevAdminTag     = "A1:B2:C3:D4"
	DevGuestTag     = "FF:EE:DD:CC"
)

type SeedDevOptions struct {
	// RegisterController also binds DevControllerID to the lab room.
	RegisterController bool
}

// SeedDev inserts a small, idempotent fixture: one block, two rooms, an admin
// with a permanent permission on the lab and a guest with none.
func SeedDev(ctx context.Context, db *sql.DB, d Dialect, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	stmts := []struct {
		name string
		sql  string
		args []any
	}{
		{"block", `INSERT INTO blocks(block_id, name) VALUES (?, ?) ON CONFLICT DO NOTHING;`,
			[]any{DevBlockID, "Main Building"}},
		{"lab room", `INSERT INTO rooms(room_id, name, block_id, created_at_ms) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING;`,
			[]any{DevRoomID, "Lab 101", DevBlockID, now}},
		{"spare room", `INSERT INTO rooms(room_id, name, block_id, created_at_ms) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING;`,
			[]any{DevSpareRoomID, "Lab 102", DevBlockID, now}},
		{"admin", `INSERT INTO users(user_id, name, is_admin, created_at_ms) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING;`,
			[]any{DevAdminUserID, "Ana Souza", true, now}},
		{"guest", `INSERT INTO users(user_id, name, is_admin, created_at_ms) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING;`,
			[]any{DevGuestUserID, "Guest User", false, now}},
		{"admin tag", `
INSERT INTO access_credentials(credential_id, user_id, type, value, is_active, created_at_ms, updated_at_ms)
VALUES (?, ?, 'NFC_TAG', ?, ?, ?, ?) ON CONFLICT DO NOTHING;`,
			[]any{"0195a3a0-0000-7000-8000-000000001000", DevAdminUserID, DevAdminTag, true, now, now}},
		{"guest tag", `
INSERT INTO access_credentials(credential_id, user_id, type, value, is_active, created_at_ms, updated_at_ms)
VALUES (?, ?, 'NFC_TAG', ?, ?, ?, ?) ON CONFLICT DO NOTHING;`,
			[]any{"0195a3a0-0000-7000-8000-000000001001", DevGuestUserID, DevGuestTag, true, now, now}},
		{"admin permission", `
INSERT INTO user_room_permissions(permission_id, user_id, room_id, expires_at_ms, created_at_ms)
VALUES (?, ?, ?, NULL, ?) ON CONFLICT DO NOTHING;`,
			[]any{"0195a3a0-0000-7000-8000-000000002000", DevAdminUserID, DevRoomID, now}},
	}

	if opt.RegisterController {
		stmts = append(stmts, struct {
			name string
			sql  string
			args []any
		}{"controller", `
INSERT INTO door_controllers(controller_id, room_id, firmware_version, last_seen_at_ms)
VALUES (?, ?, NULL, ?)
ON CONFLICT(controller_id) DO UPDATE SET room_id = excluded.room_id;`,
			[]any{DevControllerID, DevRoomID, now}})
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, d.Rebind(s.sql), s.args...); err != nil {
			return fmt.Errorf("seed %s: %w", s.name, err)
		}
	}

	return nil
}
