package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func (s *Store) FindCredential(_ context.Context, t types.CredentialType, value string) (types.CredentialMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.Value == value && c.Type == t {
			u := s.users[c.UserID]
			u.HasCredentials = true
			return types.CredentialMatch{Credential: c, User: u}, nil
		}
	}
	return types.CredentialMatch{}, store.ErrCredentialNotFound
}

func (s *Store) FindPermission(_ context.Context, userID, roomID string) (types.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.permissionIndex(userID, roomID); i >= 0 {
		return s.permissions[i], nil
	}
	return types.Permission{}, store.ErrPermissionNotFound
}

func (s *Store) permissionIndex(userID, roomID string) int {
	for i, p := range s.permissions {
		if p.UserID == userID && p.RoomID == roomID {
			return i
		}
	}
	return -1
}

func (s *Store) ListUsers(_ context.Context) ([]types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	holders := make(map[string]bool)
	for _, c := range s.credentials {
		holders[c.UserID] = true
	}
	out := make([]types.User, 0, len(s.users))
	for _, u := range s.users {
		u.HasCredentials = holders[u.ID]
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) IssueCredential(_ context.Context, c types.Credential) (types.Credential, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[c.UserID]; !ok {
		return types.Credential{}, store.ErrUserNotFound
	}
	for _, existing := range s.credentials {
		if existing.Value == c.Value {
			return types.Credential{}, store.ErrDuplicateCredential
		}
	}
	s.credentials[c.ID] = c
	return c, nil
}

func (s *Store) DeactivateCredential(_ context.Context, id string, t time.Time) (types.Credential, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return types.Credential{}, store.ErrCredentialNotFound
	}
	c.Active = false
	c.UpdatedAt = t.UTC()
	s.credentials[id] = c
	return c, nil
}

func (s *Store) GrantPermission(_ context.Context, p types.Permission) (types.Permission, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.UserID]; !ok {
		return types.Permission{}, store.ErrUserNotFound
	}
	if _, ok := s.rooms[p.RoomID]; !ok {
		return types.Permission{}, store.ErrRoomNotFound
	}
	if i := s.permissionIndex(p.UserID, p.RoomID); i >= 0 {
		s.permissions[i].ExpiresAt = p.ExpiresAt
		return s.permissions[i], nil
	}
	s.permissions = append(s.permissions, p)
	return p, nil
}

func (s *Store) RevokePermission(_ context.Context, userID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.permissionIndex(userID, roomID)
	if i < 0 {
		return store.ErrPermissionNotFound
	}
	s.permissions = append(s.permissions[:i], s.permissions[i+1:]...)
	return nil
}
