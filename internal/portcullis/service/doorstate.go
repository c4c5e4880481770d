package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/events"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// DoorStates projects controller status reports onto their rooms.
// Reports are applied last-write-wins.
type DoorStates struct {
	rooms store.RoomStore
	settings
}

func NewDoorStates(rs store.RoomStore, opts ...Option) *DoorStates {
	return &DoorStates{rooms: rs, settings: buildSettings(opts)}
}

func (d *DoorStates) ApplyStatusReport(ctx context.Context, rep types.StatusReport) (types.Room, error) {
	id := strings.TrimSpace(rep.ControllerID)
	if id == "" {
		return types.Room{}, ErrInvalidControllerID
	}
	if !rep.DoorState.Valid() {
		return types.Room{}, ErrInvalidDoorState
	}
	if rep.IsLocked == nil {
		return types.Room{}, ErrMissingLockFlag
	}

	room, err := d.rooms.ApplyStatusReport(ctx, store.StatusRecord{
		ControllerID:    id,
		DoorState:       rep.DoorState,
		IsLocked:        *rep.IsLocked,
		FirmwareVersion: optionalString(strings.TrimSpace(rep.FirmwareVersion)),
		ReportedAt:      d.now(),
	})
	if err != nil {
		return types.Room{}, err
	}

	d.logger.Debug("door status",
		zap.String("controller_id", id),
		zap.String("room_id", room.ID),
		zap.String("door_state", string(room.DoorState)),
		zap.Bool("locked", *rep.IsLocked))
	d.publisher.Publish(ctx, events.Event{
		Kind:         events.KindDoorStatus,
		ControllerID: id,
		At:           d.now(),
		Room:         &room,
	})
	return room, nil
}
