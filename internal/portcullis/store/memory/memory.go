// Package memory is an in-process implementation of every store contract.
// It is intended for use in tests and dev environments.
package memory

import (
	"sync"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// Store holds all state behind one mutex so multi-entity operations such as
// ClaimPending and ApplyStatusReport are atomic.
type Store struct {
	mu          sync.Mutex
	blocks      map[string]string
	rooms       map[string]types.Room
	users       map[string]types.User
	controllers map[string]types.Controller
	credentials map[string]types.Credential
	permissions []types.Permission
	logs        []types.AccessLogEntry
	commands    map[string]types.Command
	order       []string
}

func New() *Store {
	return &Store{
		blocks:      make(map[string]string),
		rooms:       make(map[string]types.Room),
		users:       make(map[string]types.User),
		controllers: make(map[string]types.Controller),
		credentials: make(map[string]types.Credential),
		commands:    make(map[string]types.Command),
	}
}

// AddRoom seeds a room, creating its block on first use. Test-only helper.
func (s *Store) AddRoom(r types.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.DoorState == "" {
		r.DoorState = types.DoorUnknown
	}
	if r.BlockID != "" {
		if name, ok := s.blocks[r.BlockID]; ok && r.BlockName == "" {
			r.BlockName = name
		} else {
			s.blocks[r.BlockID] = r.BlockName
		}
	}
	s.rooms[r.ID] = r
}

// AddUser seeds a user. Test-only helper.
func (s *Store) AddUser(u types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.HasCredentials = false
	s.users[u.ID] = u
}

// AccessLogs returns a copy of every appended entry in order. Test-only helper.
func (s *Store) AccessLogs() []types.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneCommand(c types.Command) types.Command {
	c.Payload = copyMap(c.Payload)
	c.ResultPayload = copyMap(c.ResultPayload)
	return c
}
