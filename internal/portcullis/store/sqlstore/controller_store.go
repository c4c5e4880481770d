package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type ControllerStore struct {
	Conn
}

func NewControllerStore(c Conn) *ControllerStore {
	return &ControllerStore{Conn: c}
}

const roomColumns = `r.room_id, r.name, r.block_id, b.name, r.door_state, r.is_locked, r.last_status_update_at_ms`

const roomFrom = `rooms r JOIN blocks b ON b.block_id = r.block_id`

// controllerRoomFrom joins a controller to its room and block. The joins stay
// flat; SQLite rejects the nested "JOIN a JOIN b ON .. ON .." form.
const controllerRoomFrom = `door_controllers dc
JOIN rooms r ON r.room_id = dc.room_id
JOIN blocks b ON b.block_id = r.block_id`

func roomDest(r *types.Room, extra ...any) []any {
	return append(extra,
		&r.ID, &r.Name, &r.BlockID, &r.BlockName, &r.DoorState)
}

type roomNulls struct {
	locked  sql.NullBool
	updated sql.NullInt64
}

func (n roomNulls) apply(r *types.Room) {
	if n.locked.Valid {
		v := n.locked.Bool
		r.IsLocked = &v
	}
	r.LastStatusUpdateAt = timePtr(n.updated)
}

func (s *ControllerStore) UpsertController(ctx context.Context, rec store.ControllerRecord) (types.Controller, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.SeenAt.IsZero() {
		rec.SeenAt = time.Now().UTC()
	}
	seenMs := toMs(rec.SeenAt)

	err := s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM rooms WHERE room_id = ?;`), rec.RoomID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("UpsertController room lookup: %w", err)
		}

		var holder string
		err = tx.QueryRowContext(ctx, s.q(`
SELECT controller_id FROM door_controllers WHERE room_id = ?;
`), rec.RoomID).Scan(&holder)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("UpsertController room binding: %w", err)
		case holder != rec.ID:
			return store.ErrRoomTaken
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO door_controllers(controller_id, room_id, firmware_version, last_seen_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(controller_id) DO UPDATE SET
  room_id          = excluded.room_id,
  firmware_version = excluded.firmware_version,
  last_seen_at_ms  = excluded.last_seen_at_ms;
`), rec.ID, rec.RoomID, nullStr(rec.FirmwareVersion), seenMs); err != nil {
			return fmt.Errorf("UpsertController upsert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Controller{}, err
	}

	return types.Controller{
		ID:              rec.ID,
		RoomID:          rec.RoomID,
		FirmwareVersion: rec.FirmwareVersion,
		LastSeenAt:      fromMs(seenMs),
	}, nil
}

func (s *ControllerStore) TouchController(ctx context.Context, id string, firmware *string, t time.Time) (types.Controller, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}

	var out types.Controller
	err := s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := touchController(ctx, tx, s.Conn, id, firmware, toMs(t)); err != nil {
			return err
		}
		c, err := getController(ctx, tx, s.Conn, id)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// touchController refreshes liveness inside an existing transaction.
func touchController(ctx context.Context, tx *sql.Tx, c Conn, id string, firmware *string, ms int64) error {
	var (
		res sql.Result
		err error
	)
	if firmware != nil {
		res, err = tx.ExecContext(ctx, c.q(`
UPDATE door_controllers SET last_seen_at_ms = ?, firmware_version = ? WHERE controller_id = ?;
`), ms, *firmware, id)
	} else {
		res, err = tx.ExecContext(ctx, c.q(`
UPDATE door_controllers SET last_seen_at_ms = ? WHERE controller_id = ?;
`), ms, id)
	}
	if err != nil {
		return fmt.Errorf("touch controller %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrControllerNotFound
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getController(ctx context.Context, q queryer, c Conn, id string) (types.Controller, error) {
	var (
		out types.Controller
		fw  sql.NullString
		ms  int64
	)
	err := q.QueryRowContext(ctx, c.q(`
SELECT controller_id, room_id, firmware_version, last_seen_at_ms
FROM door_controllers
WHERE controller_id = ?;
`), id).Scan(&out.ID, &out.RoomID, &fw, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Controller{}, store.ErrControllerNotFound
	}
	if err != nil {
		return types.Controller{}, fmt.Errorf("GetController query: %w", err)
	}
	out.FirmwareVersion = strPtr(fw)
	out.LastSeenAt = fromMs(ms)
	return out, nil
}

func (s *ControllerStore) GetController(ctx context.Context, id string) (types.Controller, error) {
	return getController(ctx, s.DB, s.Conn, id)
}

func (s *ControllerStore) GetControllerRoom(ctx context.Context, id string) (types.Controller, types.Room, error) {
	var (
		c     types.Controller
		r     types.Room
		fw    sql.NullString
		ms    int64
		nulls roomNulls
	)
	dest := roomDest(&r, &c.ID, &c.RoomID, &fw, &ms)
	dest = append(dest, &nulls.locked, &nulls.updated)

	err := s.DB.QueryRowContext(ctx, s.q(`
SELECT dc.controller_id, dc.room_id, dc.firmware_version, dc.last_seen_at_ms, `+roomColumns+`
FROM `+controllerRoomFrom+`
WHERE dc.controller_id = ?;
`), id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Controller{}, types.Room{}, store.ErrControllerNotFound
	}
	if err != nil {
		return types.Controller{}, types.Room{}, fmt.Errorf("GetControllerRoom query: %w", err)
	}
	c.FirmwareVersion = strPtr(fw)
	c.LastSeenAt = fromMs(ms)
	nulls.apply(&r)
	return c, r, nil
}

func (s *ControllerStore) ListControllers(ctx context.Context) ([]types.ControllerSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT dc.controller_id, dc.firmware_version, dc.last_seen_at_ms, `+roomColumns+`,
       lc.command_id, lc.type, lc.status, lc.created_at_ms, lc.sent_at_ms, lc.processed_at_ms
FROM `+controllerRoomFrom+`
LEFT JOIN door_commands lc ON lc.command_id = (
  SELECT c.command_id FROM door_commands c
  WHERE c.controller_id = dc.controller_id
  ORDER BY c.created_at_ms DESC, c.command_id DESC
  LIMIT 1
)
ORDER BY b.name, r.name;
`)
	if err != nil {
		return nil, fmt.Errorf("ListControllers query: %w", err)
	}
	defer rows.Close()

	var out []types.ControllerSummary
	for rows.Next() {
		var (
			sum       types.ControllerSummary
			fw        sql.NullString
			seenMs    int64
			nulls     roomNulls
			cmdID     sql.NullString
			cmdType   sql.NullString
			cmdStatus sql.NullString
			created   sql.NullInt64
			sent      sql.NullInt64
			processed sql.NullInt64
		)
		dest := roomDest(&sum.Room, &sum.ControllerID, &fw, &seenMs)
		dest = append(dest, &nulls.locked, &nulls.updated,
			&cmdID, &cmdType, &cmdStatus, &created, &sent, &processed)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ListControllers scan: %w", err)
		}
		nulls.apply(&sum.Room)
		sum.Controller = types.ControllerState{
			FirmwareVersion: strPtr(fw),
			LastSeenAt:      fromMs(seenMs),
		}
		if cmdID.Valid {
			sum.LastCommand = &types.CommandSummary{
				ID:          cmdID.String,
				Type:        types.CommandType(cmdType.String),
				Status:      types.CommandStatus(cmdStatus.String),
				CreatedAt:   fromMs(created.Int64),
				SentAt:      timePtr(sent),
				ProcessedAt: timePtr(processed),
			}
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListControllers rows: %w", err)
	}
	return out, nil
}
