package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/sqlstore"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// UpsertController
// ═══════════════════════════════════════════════════════════════════════════

func TestControllerStore_Upsert_IsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewControllerStore(newTestConn(t, conn))
	ctx := context.Background()

	_, err := cs.UpsertController(ctx, store.ControllerRecord{
		ID: "ctrl-1", RoomID: db.DevRoomID, FirmwareVersion: ptr("1.0.0"), SeenAt: t0,
	})
	require.NoError(t, err)

	got, err := cs.UpsertController(ctx, store.ControllerRecord{
		ID: "ctrl-1", RoomID: db.DevRoomID, FirmwareVersion: ptr("1.1.0"), SeenAt: t0.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", *got.FirmwareVersion)

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM door_controllers WHERE controller_id = ?`, "ctrl-1").Scan(&count))
	assert.Equal(t, 1, count)

	stored, err := cs.GetController(ctx, "ctrl-1")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", *stored.FirmwareVersion)
	assert.True(t, stored.LastSeenAt.Equal(t0.Add(time.Minute)))
}

func TestControllerStore_Upsert_RebindsRoom(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, true)
	cs := sqlstore.NewControllerStore(newTestConn(t, conn))

	got, err := cs.UpsertController(context.Background(), store.ControllerRecord{
		ID: db.DevControllerID, RoomID: db.DevSpareRoomID, SeenAt: t0,
	})
	require.NoError(t, err)
	assert.Equal(t, db.DevSpareRoomID, got.RoomID)
	assert.Nil(t, got.FirmwareVersion)
}

func TestControllerStore_Upsert_RoomTaken(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, true)
	cs := sqlstore.NewControllerStore(newTestConn(t, conn))

	_, err := cs.UpsertController(context.Background(), store.ControllerRecord{
		ID: "intruder", RoomID: db.DevRoomID, SeenAt: t0,
	})
	assert.ErrorIs(t, err, store.ErrRoomTaken)
}

func TestControllerStore_Upsert_UnknownRoom(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewControllerStore(newTestConn(t, conn))

	_, err := cs.UpsertController(context.Background(), store.ControllerRecord{
		ID: "ctrl-1", RoomID: "nowhere", SeenAt: t0,
	})
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
}

// ═══════════════════════════════════════════════════════════════════════════
// TouchController
// ═══════════════════════════════════════════════════════════════════════════

func TestControllerStore_Touch_KeepsFirmwareWhenNil(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	cs := sqlstore.NewControllerStore(newTestConn(t, conn))
	ctx := context.Background()

	_, err := cs.UpsertController(ctx, store.ControllerRecord{
		ID: "ctrl-1", RoomID: db.DevRoomID, FirmwareVersion: ptr("2.0.0"), SeenAt: t0,
	})
	require.NoError(t, err)

	got, err := cs.TouchController(ctx, "ctrl-1", nil, t0.Add(30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, got.FirmwareVersion)
	assert.Equal(t, "2.0.0", *got.FirmwareVersion)
	assert.True(t, got.LastSeenAt.Equal(t0.Add(30*time.Second)))

	got, err = cs.TouchController(ctx, "ctrl-1", ptr("2.1.0"), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", *got.FirmwareVersion)
}

func TestControllerStore_Touch_UnknownController(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlstore.NewControllerStore(newTestConn(t, conn))

	_, err := cs.TouchController(context.Background(), "ghost", nil, t0)
	assert.ErrorIs(t, err, store.ErrControllerNotFound)

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM door_controllers`).Scan(&count))
	assert.Zero(t, count, "touch must not create controllers")
}

// ═══════════════════════════════════════════════════════════════════════════
// GetControllerRoom / ListControllers
// ═══════════════════════════════════════════════════════════════════════════

func TestControllerStore_GetControllerRoom(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, true)
	cs := sqlstore.NewControllerStore(newTestConn(t, conn))

	c, r, err := cs.GetControllerRoom(context.Background(), db.DevControllerID)
	require.NoError(t, err)
	assert.Equal(t, db.DevRoomID, c.RoomID)
	assert.Equal(t, "Lab 101", r.Name)
	assert.Equal(t, "Main Building", r.BlockName)
	assert.Equal(t, types.DoorUnknown, r.DoorState)
	assert.Nil(t, r.IsLocked)
	assert.Nil(t, r.LastStatusUpdateAt)

	_, _, err = cs.GetControllerRoom(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrControllerNotFound)
}

func TestControllerStore_ListControllers_WithLastCommand(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, true)
	c := newTestConn(t, conn)
	cs := sqlstore.NewControllerStore(c)
	cmds := sqlstore.NewCommandStore(c)
	ctx := context.Background()

	_, err := cs.UpsertController(ctx, store.ControllerRecord{ID: "ctrl-spare", RoomID: db.DevSpareRoomID, SeenAt: t0})
	require.NoError(t, err)

	for i, typ := range []types.CommandType{types.CommandLock, types.CommandSyncState} {
		_, err := cmds.CreateCommand(ctx, types.Command{
			ID:           "cmd-" + string(typ),
			ControllerID: db.DevControllerID,
			Type:         typ,
			CreatedAt:    t0.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	list, err := cs.ListControllers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Ordered by block then room name: Lab 101 before Lab 102.
	assert.Equal(t, db.DevControllerID, list[0].ControllerID)
	require.NotNil(t, list[0].LastCommand)
	assert.Equal(t, types.CommandSyncState, list[0].LastCommand.Type)
	assert.Equal(t, types.CommandPending, list[0].LastCommand.Status)

	assert.Equal(t, "ctrl-spare", list[1].ControllerID)
	assert.Nil(t, list[1].LastCommand)
	assert.False(t, list[1].Controller.Online)
}
