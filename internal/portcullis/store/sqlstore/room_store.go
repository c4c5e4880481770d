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

type RoomStore struct {
	Conn
}

func NewRoomStore(c Conn) *RoomStore {
	return &RoomStore{Conn: c}
}

func (s *RoomStore) ApplyStatusReport(ctx context.Context, rec store.StatusRecord) (types.Room, error) {
	if rec.ReportedAt.IsZero() {
		rec.ReportedAt = time.Now().UTC()
	}
	ms := toMs(rec.ReportedAt)

	var out types.Room
	err := s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var roomID string
		err := tx.QueryRowContext(ctx, s.q(`
SELECT room_id FROM door_controllers WHERE controller_id = ?;
`), rec.ControllerID).Scan(&roomID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrControllerNotFound
		}
		if err != nil {
			return fmt.Errorf("ApplyStatusReport resolve room: %w", err)
		}

		if err := touchController(ctx, tx, s.Conn, rec.ControllerID, rec.FirmwareVersion, ms); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, s.q(`
UPDATE rooms
SET door_state = ?,
    is_locked = ?,
    last_status_update_at_ms = ?
WHERE room_id = ?;
`), string(rec.DoorState), rec.IsLocked, ms, roomID); err != nil {
			return fmt.Errorf("ApplyStatusReport update room: %w", err)
		}

		r, err := getRoom(ctx, tx, s.Conn, roomID)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func getRoom(ctx context.Context, q queryer, c Conn, roomID string) (types.Room, error) {
	var (
		r     types.Room
		nulls roomNulls
	)
	dest := append(roomDest(&r), &nulls.locked, &nulls.updated)
	err := q.QueryRowContext(ctx, c.q(`
SELECT `+roomColumns+` FROM `+roomFrom+` WHERE r.room_id = ?;
`), roomID).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Room{}, store.ErrRoomNotFound
	}
	if err != nil {
		return types.Room{}, fmt.Errorf("get room: %w", err)
	}
	nulls.apply(&r)
	return r, nil
}

func (s *RoomStore) ListRooms(ctx context.Context) ([]types.Room, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+roomColumns+` FROM `+roomFrom+`
ORDER BY b.name, r.name;
`)
	if err != nil {
		return nil, fmt.Errorf("ListRooms query: %w", err)
	}
	defer rows.Close()

	var out []types.Room
	for rows.Next() {
		var (
			r     types.Room
			nulls roomNulls
		)
		if err := rows.Scan(append(roomDest(&r), &nulls.locked, &nulls.updated)...); err != nil {
			return nil, fmt.Errorf("ListRooms scan: %w", err)
		}
		nulls.apply(&r)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRooms rows: %w", err)
	}
	return out, nil
}
