package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

var (
	_ store.ControllerStore = (*memory.Store)(nil)
	_ store.RoomStore       = (*memory.Store)(nil)
	_ store.CredentialStore = (*memory.Store)(nil)
	_ store.AccessLogStore  = (*memory.Store)(nil)
	_ store.CommandStore    = (*memory.Store)(nil)
)

func TestStore_ClaimPending_RespectsLimitAndOrder(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"c1", "c2", "c3"} {
		_, err := s.CreateCommand(ctx, types.Command{
			ID:           id,
			ControllerID: "ctrl-1",
			Type:         types.CommandLock,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	res, err := s.ClaimPending(ctx, "ctrl-1", 2, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, res.Sent, 2)
	assert.Equal(t, "c1", res.Sent[0].ID)
	assert.Equal(t, "c2", res.Sent[1].ID)

	res, err = s.ClaimPending(ctx, "ctrl-1", 10, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, res.Sent, 1)
	assert.Equal(t, "c3", res.Sent[0].ID)
}

func TestStore_UpsertController_RoomTaken(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	s.AddRoom(types.Room{ID: "room-1", Name: "Lab", BlockID: "b1", BlockName: "Main"})

	_, err := s.UpsertController(ctx, store.ControllerRecord{ID: "a", RoomID: "room-1"})
	require.NoError(t, err)

	_, err = s.UpsertController(ctx, store.ControllerRecord{ID: "b", RoomID: "room-1"})
	assert.ErrorIs(t, err, store.ErrRoomTaken)

	_, err = s.UpsertController(ctx, store.ControllerRecord{ID: "a", RoomID: "missing"})
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
}
