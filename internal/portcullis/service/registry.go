package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// Registry tracks which controller guards which room and when it was last
// heard from.
type Registry struct {
	store store.ControllerStore
	settings
}

func NewRegistry(st store.ControllerStore, opts ...Option) *Registry {
	return &Registry{store: st, settings: buildSettings(opts)}
}

// Register creates or re-binds a controller. Calling it again with the same
// id overwrites room and firmware and refreshes liveness.
func (r *Registry) Register(ctx context.Context, req types.RegisterRequest) (types.Controller, error) {
	id := strings.TrimSpace(req.ControllerID)
	if id == "" {
		return types.Controller{}, ErrInvalidControllerID
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		return types.Controller{}, ErrInvalidRoomID
	}

	c, err := r.store.UpsertController(ctx, store.ControllerRecord{
		ID:              id,
		RoomID:          roomID,
		FirmwareVersion: optionalString(strings.TrimSpace(req.FirmwareVersion)),
		SeenAt:          r.now(),
	})
	if err != nil {
		return types.Controller{}, err
	}

	r.logger.Info("controller registered",
		zap.String("controller_id", id),
		zap.String("room_id", roomID))
	return c, nil
}

// Heartbeat refreshes liveness of a registered controller. It never creates
// one; unknown ids return ErrControllerNotFound so the transport can ask the
// device to register.
func (r *Registry) Heartbeat(ctx context.Context, req types.HeartbeatRequest) (types.Controller, error) {
	id := strings.TrimSpace(req.ControllerID)
	if id == "" {
		return types.Controller{}, ErrInvalidControllerID
	}
	return r.store.TouchController(ctx, id, optionalString(strings.TrimSpace(req.FirmwareVersion)), r.now())
}

func (r *Registry) Lookup(ctx context.Context, controllerID string) (types.Controller, error) {
	id := strings.TrimSpace(controllerID)
	if id == "" {
		return types.Controller{}, ErrInvalidControllerID
	}
	return r.store.GetController(ctx, id)
}
