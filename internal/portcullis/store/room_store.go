package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type StatusRecord struct {
	ControllerID    string
	DoorState       types.DoorState
	IsLocked        bool
	FirmwareVersion *string
	ReportedAt      time.Time
}

type RoomStore interface {
	// ApplyStatusReport refreshes the reporting controller's liveness and
	// overwrites its room's door state in one transaction.
	ApplyStatusReport(ctx context.Context, rec StatusRecord) (types.Room, error)

	ListRooms(ctx context.Context) ([]types.Room, error)
}
