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

func TestRoomStore_ApplyStatusReport_UpdatesRoomAndLiveness(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, true)
	c := newTestConn(t, conn)
	rs := sqlstore.NewRoomStore(c)
	ctx := context.Background()

	at := t0.Add(5 * time.Minute)
	room, err := rs.ApplyStatusReport(ctx, store.StatusRecord{
		ControllerID:    db.DevControllerID,
		DoorState:       types.DoorClosed,
		IsLocked:        true,
		FirmwareVersion: ptr("3.0.0"),
		ReportedAt:      at,
	})
	require.NoError(t, err)
	assert.Equal(t, db.DevRoomID, room.ID)
	assert.Equal(t, types.DoorClosed, room.DoorState)
	require.NotNil(t, room.IsLocked)
	assert.True(t, *room.IsLocked)
	require.NotNil(t, room.LastStatusUpdateAt)
	assert.True(t, room.LastStatusUpdateAt.Equal(at))

	ctrl, err := sqlstore.NewControllerStore(c).GetController(ctx, db.DevControllerID)
	require.NoError(t, err)
	assert.True(t, ctrl.LastSeenAt.Equal(at))
	assert.Equal(t, "3.0.0", *ctrl.FirmwareVersion)
}

func TestRoomStore_ApplyStatusReport_LastWriteWins(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, true)
	rs := sqlstore.NewRoomStore(newTestConn(t, conn))
	ctx := context.Background()

	_, err := rs.ApplyStatusReport(ctx, store.StatusRecord{
		ControllerID: db.DevControllerID, DoorState: types.DoorOpen, IsLocked: false, ReportedAt: t0.Add(time.Minute),
	})
	require.NoError(t, err)

	// An older report delivered late still overwrites.
	room, err := rs.ApplyStatusReport(ctx, store.StatusRecord{
		ControllerID: db.DevControllerID, DoorState: types.DoorClosed, IsLocked: true, ReportedAt: t0,
	})
	require.NoError(t, err)
	assert.Equal(t, types.DoorClosed, room.DoorState)
	assert.True(t, *room.IsLocked)
}

func TestRoomStore_ApplyStatusReport_UnknownController(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	rs := sqlstore.NewRoomStore(newTestConn(t, conn))

	_, err := rs.ApplyStatusReport(context.Background(), store.StatusRecord{
		ControllerID: "ghost", DoorState: types.DoorOpen, ReportedAt: t0,
	})
	assert.ErrorIs(t, err, store.ErrControllerNotFound)

	rooms, err := rs.ListRooms(context.Background())
	require.NoError(t, err)
	for _, r := range rooms {
		assert.Equal(t, types.DoorUnknown, r.DoorState)
		assert.Nil(t, r.IsLocked)
	}
}

func TestRoomStore_ListRooms_Ordered(t *testing.T) {
	conn := openTestDB(t)
	seedFixture(t, conn, false)
	rs := sqlstore.NewRoomStore(newTestConn(t, conn))

	rooms, err := rs.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Lab 101", rooms[0].Name)
	assert.Equal(t, "Lab 102", rooms[1].Name)
	assert.Equal(t, "Main Building", rooms[0].BlockName)
}
