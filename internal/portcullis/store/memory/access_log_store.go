package memory

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func (s *Store) AppendAccessLog(_ context.Context, e types.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, e)
	return nil
}

func (s *Store) ListAccessLogs(_ context.Context, roomID string, limit int) ([]types.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.AccessLogEntry
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.logs[i]
		if e.RoomID != roomID {
			continue
		}
		if e.UserID != nil {
			if u, ok := s.users[*e.UserID]; ok {
				name := u.Name
				e.UserName = &name
			}
		}
		out = append(out, e)
	}
	return out, nil
}
