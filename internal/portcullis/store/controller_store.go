package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type ControllerRecord struct {
	ID              string
	RoomID          string
	FirmwareVersion *string
	SeenAt          time.Time
}

type ControllerStore interface {
	// UpsertController creates the controller or overwrites its room binding,
	// firmware and last-seen.
	UpsertController(ctx context.Context, rec ControllerRecord) (types.Controller, error)

	// TouchController refreshes last-seen, and firmware when non-nil, of an
	// existing controller. Returns ErrControllerNotFound otherwise.
	TouchController(ctx context.Context, id string, firmware *string, t time.Time) (types.Controller, error)

	GetController(ctx context.Context, id string) (types.Controller, error)

	// GetControllerRoom resolves a controller together with its bound room.
	GetControllerRoom(ctx context.Context, id string) (types.Controller, types.Room, error)

	// ListControllers returns every controller with its room and most recent
	// command, ordered by block name then room name. Online is left false.
	ListControllers(ctx context.Context) ([]types.ControllerSummary, error)
}
