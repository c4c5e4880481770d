package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func (s *Store) UpsertController(_ context.Context, rec store.ControllerRecord) (types.Controller, error) {
	if rec.SeenAt.IsZero() {
		rec.SeenAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[rec.RoomID]; !ok {
		return types.Controller{}, store.ErrRoomNotFound
	}
	for id, c := range s.controllers {
		if c.RoomID == rec.RoomID && id != rec.ID {
			return types.Controller{}, store.ErrRoomTaken
		}
	}

	c := types.Controller{
		ID:              rec.ID,
		RoomID:          rec.RoomID,
		FirmwareVersion: rec.FirmwareVersion,
		LastSeenAt:      rec.SeenAt.UTC(),
	}
	s.controllers[c.ID] = c
	return c, nil
}

func (s *Store) TouchController(_ context.Context, id string, firmware *string, t time.Time) (types.Controller, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchLocked(id, firmware, t)
}

func (s *Store) touchLocked(id string, firmware *string, t time.Time) (types.Controller, error) {
	c, ok := s.controllers[id]
	if !ok {
		return types.Controller{}, store.ErrControllerNotFound
	}
	c.LastSeenAt = t.UTC()
	if firmware != nil {
		fw := *firmware
		c.FirmwareVersion = &fw
	}
	s.controllers[id] = c
	return c, nil
}

func (s *Store) GetController(_ context.Context, id string) (types.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[id]
	if !ok {
		return types.Controller{}, store.ErrControllerNotFound
	}
	return c, nil
}

func (s *Store) GetControllerRoom(_ context.Context, id string) (types.Controller, types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[id]
	if !ok {
		return types.Controller{}, types.Room{}, store.ErrControllerNotFound
	}
	r, ok := s.rooms[c.RoomID]
	if !ok {
		return types.Controller{}, types.Room{}, store.ErrControllerNotFound
	}
	return c, r, nil
}

func (s *Store) ListControllers(_ context.Context) ([]types.ControllerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.ControllerSummary
	for _, c := range s.controllers {
		r, ok := s.rooms[c.RoomID]
		if !ok {
			continue
		}
		sum := types.ControllerSummary{
			ControllerID: c.ID,
			Room:         r,
			Controller: types.ControllerState{
				FirmwareVersion: c.FirmwareVersion,
				LastSeenAt:      c.LastSeenAt,
			},
		}
		// order is creation order, so the last match is the newest.
		for i := len(s.order) - 1; i >= 0; i-- {
			cmd := s.commands[s.order[i]]
			if cmd.ControllerID == c.ID {
				summary := cmd.Summary()
				sum.LastCommand = &summary
				break
			}
		}
		out = append(out, sum)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Room, out[j].Room
		if a.BlockName != b.BlockName {
			return a.BlockName < b.BlockName
		}
		return a.Name < b.Name
	})
	return out, nil
}
