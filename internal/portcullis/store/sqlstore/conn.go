// Package sqlstore implements the store contracts on database/sql for both
// SQLite and Postgres. Reads go straight to the pool; every write goes
// through the dialect's TxRunner.
package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portcullis/server/internal/db"
)

// Conn bundles what every store needs.
type Conn struct {
	DB      *sql.DB
	Writer  dbpkg.TxRunner
	Dialect dbpkg.Dialect
}

func (c Conn) q(query string) string { return c.Dialect.Rebind(query) }

type scanner interface {
	Scan(dest ...any) error
}

func toMs(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMs(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMs(*t)
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMs(n.Int64)
	return &t
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// encodePayload renders a payload column. A nil map is stored as "{}".
func encodePayload(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// encodeResult renders a nullable result column.
func encodeResult(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

func decodeMap(n sql.NullString) (map[string]any, error) {
	if !n.Valid || n.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(n.String), &m); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	return m, nil
}
