package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type AccessLogStore struct {
	Conn
}

func NewAccessLogStore(c Conn) *AccessLogStore {
	return &AccessLogStore{Conn: c}
}

func (s *AccessLogStore) AppendAccessLog(ctx context.Context, e types.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var reason any
	if e.Reason != nil {
		reason = string(*e.Reason)
	}

	return s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO access_logs(
  log_id, room_id, user_id, credential_id, credential_value_used, status, reason, timestamp_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`),
			e.ID, e.RoomID, nullStr(e.UserID), nullStr(e.CredentialID),
			e.CredentialValueUsed, string(e.Status), reason, toMs(e.Timestamp),
		); err != nil {
			return fmt.Errorf("AppendAccessLog insert: %w", err)
		}
		return nil
	})
}

func (s *AccessLogStore) ListAccessLogs(ctx context.Context, roomID string, limit int) ([]types.AccessLogEntry, error) {
	rows, err := s.DB.QueryContext(ctx, s.q(`
SELECT l.log_id, l.room_id, l.user_id, l.credential_id, l.credential_value_used,
       l.status, l.reason, l.timestamp_ms, u.name
FROM access_logs l
LEFT JOIN users u ON u.user_id = l.user_id
WHERE l.room_id = ?
ORDER BY l.timestamp_ms DESC, l.log_id DESC
LIMIT ?;
`), roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListAccessLogs query: %w", err)
	}
	defer rows.Close()

	var out []types.AccessLogEntry
	for rows.Next() {
		var (
			e        types.AccessLogEntry
			userID   sql.NullString
			credID   sql.NullString
			reason   sql.NullString
			ts       int64
			userName sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RoomID, &userID, &credID, &e.CredentialValueUsed,
			&e.Status, &reason, &ts, &userName); err != nil {
			return nil, fmt.Errorf("ListAccessLogs scan: %w", err)
		}
		e.UserID = strPtr(userID)
		e.CredentialID = strPtr(credID)
		if reason.Valid {
			r := types.DenyReason(reason.String)
			e.Reason = &r
		}
		e.Timestamp = fromMs(ts)
		e.UserName = strPtr(userName)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAccessLogs rows: %w", err)
	}
	return out, nil
}
