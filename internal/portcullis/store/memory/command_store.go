package memory

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func (s *Store) CreateCommand(_ context.Context, c types.Command) (types.Command, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = types.CommandPending
	}
	if c.Payload == nil {
		c.Payload = map[string]any{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[c.ID] = cloneCommand(c)
	s.order = append(s.order, c.ID)
	return c, nil
}

func (s *Store) ClaimPending(_ context.Context, controllerID string, limit int, now time.Time) (store.ClaimResult, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var res store.ClaimResult
	seen := 0
	for _, id := range s.order {
		if seen >= limit {
			break
		}
		c := s.commands[id]
		if c.ControllerID != controllerID || c.Status != types.CommandPending {
			continue
		}
		seen++

		at := now.UTC()
		c.UpdatedAt = at
		if c.ExpiredAt(at) {
			c.Status = types.CommandExpired
			c.ProcessedAt = &at
			s.commands[id] = c
			res.Expired = append(res.Expired, cloneCommand(c))
			continue
		}
		c.Status = types.CommandSent
		c.SentAt = &at
		s.commands[id] = c
		res.Sent = append(res.Sent, cloneCommand(c))
	}
	return res, nil
}

func (s *Store) AckCommand(_ context.Context, rec store.AckRecord) (types.Command, error) {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commands[rec.CommandID]
	if !ok {
		return types.Command{}, store.ErrCommandNotFound
	}
	at := rec.ProcessedAt.UTC()
	c.Status = rec.Status
	c.ResultPayload = copyMap(rec.ResultPayload)
	c.ErrorMessage = rec.ErrorMessage
	c.ProcessedAt = &at
	c.UpdatedAt = at
	s.commands[c.ID] = c
	return cloneCommand(c), nil
}

func (s *Store) GetCommand(_ context.Context, id string) (types.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commands[id]
	if !ok {
		return types.Command{}, store.ErrCommandNotFound
	}
	return cloneCommand(c), nil
}

func (s *Store) ListCommands(_ context.Context, controllerID string, limit int) ([]types.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Command
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		c := s.commands[s.order[i]]
		if c.ControllerID == controllerID {
			out = append(out, cloneCommand(c))
		}
	}
	return out, nil
}
