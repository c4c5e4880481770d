package service_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/events"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

const (
	roomLab   = "room-lab"
	roomSpare = "room-spare"
	userAna   = "user-ana"
	userBo    = "user-bo"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced clock shared by every service under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store  *memory.Store
	clock  *fakeClock
	events *events.Recorder
	core   *service.Core
}

// newFixture returns a core over a memory store holding two rooms and two
// users, with the clock at epoch.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	ms := memory.New()
	ms.AddRoom(types.Room{ID: roomLab, Name: "Lab 101", BlockID: "block-main", BlockName: "Main Building"})
	ms.AddRoom(types.Room{ID: roomSpare, Name: "Lab 102", BlockID: "block-main"})
	ms.AddUser(types.User{ID: userAna, Name: "Ana Souza", IsAdmin: true})
	ms.AddUser(types.User{ID: userBo, Name: "Bo Lindqvist"})

	clock := &fakeClock{t: epoch}
	rec := events.NewRecorder(256)
	var n int
	var mu sync.Mutex
	nextID := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%04d", n)
	}

	core := service.NewCore(service.Stores{
		Controllers: ms,
		Rooms:       ms,
		Credentials: ms,
		AccessLogs:  ms,
		Commands:    ms,
	}, service.Config{}, service.WithClock(clock.Now), service.WithPublisher(rec), service.WithIDs(nextID))

	return &fixture{store: ms, clock: clock, events: rec, core: core}
}

func ptr[T any](v T) *T { return &v }
