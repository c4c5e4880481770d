package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type CommandStore struct {
	Conn
}

func NewCommandStore(c Conn) *CommandStore {
	return &CommandStore{Conn: c}
}

const commandColumns = `command_id, controller_id, type, status, payload, result_payload, error_message,
       expires_at_ms, sent_at_ms, processed_at_ms, created_at_ms, updated_at_ms`

func scanCommand(row scanner) (types.Command, error) {
	var (
		c                        types.Command
		payload, result, errMsg  sql.NullString
		expires, sent, processed sql.NullInt64
		created, updated         int64
	)
	if err := row.Scan(&c.ID, &c.ControllerID, &c.Type, &c.Status, &payload, &result, &errMsg,
		&expires, &sent, &processed, &created, &updated); err != nil {
		return types.Command{}, err
	}

	var err error
	if c.Payload, err = decodeMap(payload); err != nil {
		return types.Command{}, err
	}
	if c.Payload == nil {
		c.Payload = map[string]any{}
	}
	if c.ResultPayload, err = decodeMap(result); err != nil {
		return types.Command{}, err
	}
	c.ErrorMessage = strPtr(errMsg)
	c.ExpiresAt = timePtr(expires)
	c.SentAt = timePtr(sent)
	c.ProcessedAt = timePtr(processed)
	c.CreatedAt = fromMs(created)
	c.UpdatedAt = fromMs(updated)
	return c, nil
}

func (s *CommandStore) CreateCommand(ctx context.Context, c types.Command) (types.Command, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.CreatedAt = fromMs(toMs(c.CreatedAt))
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = types.CommandPending
	}
	if c.Payload == nil {
		c.Payload = map[string]any{}
	}
	if c.ExpiresAt != nil {
		e := fromMs(toMs(*c.ExpiresAt))
		c.ExpiresAt = &e
	}

	payload, err := encodePayload(c.Payload)
	if err != nil {
		return types.Command{}, fmt.Errorf("CreateCommand: %w", err)
	}

	err = s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO door_commands(
  command_id, controller_id, type, status, payload, expires_at_ms, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`),
			c.ID, c.ControllerID, string(c.Type), string(c.Status), payload,
			nullMs(c.ExpiresAt), toMs(c.CreatedAt), toMs(c.UpdatedAt),
		); err != nil {
			return fmt.Errorf("CreateCommand insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Command{}, err
	}
	return c, nil
}

func (s *CommandStore) ClaimPending(ctx context.Context, controllerID string, limit int, now time.Time) (store.ClaimResult, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	nowMs := toMs(now)
	at := fromMs(nowMs)

	var res store.ClaimResult
	err := s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		pending, err := s.selectPending(ctx, tx, controllerID, limit)
		if err != nil {
			return err
		}

		var expiredIDs, sentIDs []any
		for _, c := range pending {
			if c.ExpiredAt(at) {
				c.Status = types.CommandExpired
				c.ProcessedAt = &at
				c.UpdatedAt = at
				res.Expired = append(res.Expired, c)
				expiredIDs = append(expiredIDs, c.ID)
				continue
			}
			c.Status = types.CommandSent
			c.SentAt = &at
			c.UpdatedAt = at
			res.Sent = append(res.Sent, c)
			sentIDs = append(sentIDs, c.ID)
		}

		if len(expiredIDs) > 0 {
			args := append([]any{nowMs, nowMs}, expiredIDs...)
			if _, err := tx.ExecContext(ctx, s.q(`
UPDATE door_commands
SET status = 'EXPIRED', processed_at_ms = ?, updated_at_ms = ?
WHERE command_id IN (`+dbpkg.Placeholders(len(expiredIDs))+`);
`), args...); err != nil {
				return fmt.Errorf("ClaimPending expire: %w", err)
			}
		}

		if len(sentIDs) > 0 {
			args := append([]any{nowMs, nowMs}, sentIDs...)
			if _, err := tx.ExecContext(ctx, s.q(`
UPDATE door_commands
SET status = 'SENT', sent_at_ms = ?, updated_at_ms = ?
WHERE command_id IN (`+dbpkg.Placeholders(len(sentIDs))+`);
`), args...); err != nil {
				return fmt.Errorf("ClaimPending mark sent: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return store.ClaimResult{}, err
	}
	return res, nil
}

// selectPending reads and locks the oldest pending commands. The rows are
// fully drained before returning so the caller can reuse the transaction.
func (s *CommandStore) selectPending(ctx context.Context, tx *sql.Tx, controllerID string, limit int) ([]types.Command, error) {
	rows, err := tx.QueryContext(ctx, s.q(`
SELECT `+commandColumns+`
FROM door_commands
WHERE controller_id = ? AND status = 'PENDING'
ORDER BY created_at_ms, command_id
LIMIT ?`+s.Dialect.ForUpdate()+`;
`), controllerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending select: %w", err)
	}
	defer rows.Close()

	var out []types.Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("ClaimPending scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending rows: %w", err)
	}
	return out, nil
}

func (s *CommandStore) AckCommand(ctx context.Context, rec store.AckRecord) (types.Command, error) {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	ms := toMs(rec.ProcessedAt)

	result, err := encodeResult(rec.ResultPayload)
	if err != nil {
		return types.Command{}, fmt.Errorf("AckCommand: %w", err)
	}

	var out types.Command
	err = s.Writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
UPDATE door_commands
SET status = ?,
    result_payload = ?,
    error_message = ?,
    processed_at_ms = ?,
    updated_at_ms = ?
WHERE command_id = ?;
`), string(rec.Status), result, nullStr(rec.ErrorMessage), ms, ms, rec.CommandID)
		if err != nil {
			return fmt.Errorf("AckCommand update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrCommandNotFound
		}

		c, err := scanCommand(tx.QueryRowContext(ctx, s.q(`
SELECT `+commandColumns+` FROM door_commands WHERE command_id = ?;
`), rec.CommandID))
		if err != nil {
			return fmt.Errorf("AckCommand reload: %w", err)
		}
		out = c
		return nil
	})
	return out, err
}

func (s *CommandStore) GetCommand(ctx context.Context, id string) (types.Command, error) {
	c, err := scanCommand(s.DB.QueryRowContext(ctx, s.q(`
SELECT `+commandColumns+` FROM door_commands WHERE command_id = ?;
`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Command{}, store.ErrCommandNotFound
	}
	if err != nil {
		return types.Command{}, fmt.Errorf("GetCommand query: %w", err)
	}
	return c, nil
}

func (s *CommandStore) ListCommands(ctx context.Context, controllerID string, limit int) ([]types.Command, error) {
	rows, err := s.DB.QueryContext(ctx, s.q(`
SELECT `+commandColumns+`
FROM door_commands
WHERE controller_id = ?
ORDER BY created_at_ms DESC, command_id DESC
LIMIT ?;
`), controllerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListCommands query: %w", err)
	}
	defer rows.Close()

	var out []types.Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCommands scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCommands rows: %w", err)
	}
	return out, nil
}
