package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func (s *Store) ApplyStatusReport(_ context.Context, rec store.StatusRecord) (types.Room, error) {
	if rec.ReportedAt.IsZero() {
		rec.ReportedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.touchLocked(rec.ControllerID, rec.FirmwareVersion, rec.ReportedAt)
	if err != nil {
		return types.Room{}, err
	}
	r, ok := s.rooms[c.RoomID]
	if !ok {
		return types.Room{}, store.ErrRoomNotFound
	}

	at := rec.ReportedAt.UTC()
	locked := rec.IsLocked
	r.DoorState = rec.DoorState
	r.IsLocked = &locked
	r.LastStatusUpdateAt = &at
	s.rooms[r.ID] = r
	return r, nil
}

func (s *Store) ListRooms(_ context.Context) ([]types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockName != out[j].BlockName {
			return out[i].BlockName < out[j].BlockName
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
