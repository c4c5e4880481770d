package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type DashboardConfig struct {
	// OnlineWindow is how recently a controller must have been seen to count
	// as online. Defaults to two minutes.
	OnlineWindow time.Duration

	AccessLogDefault int
	AccessLogMax     int
}

// Dashboard serves the read-only administrative views.
type Dashboard struct {
	controllers store.ControllerStore
	rooms       store.RoomStore
	credentials store.CredentialStore
	logs        store.AccessLogStore
	cfg         DashboardConfig
	settings
}

func NewDashboard(cs store.ControllerStore, rs store.RoomStore, creds store.CredentialStore, logs store.AccessLogStore, cfg DashboardConfig, opts ...Option) *Dashboard {
	if cfg.OnlineWindow <= 0 {
		cfg.OnlineWindow = 2 * time.Minute
	}
	if cfg.AccessLogDefault <= 0 {
		cfg.AccessLogDefault = 50
	}
	if cfg.AccessLogMax <= 0 {
		cfg.AccessLogMax = 200
	}
	return &Dashboard{
		controllers: cs,
		rooms:       rs,
		credentials: creds,
		logs:        logs,
		cfg:         cfg,
		settings:    buildSettings(opts),
	}
}

// Doors lists every controller with its room, liveness and last command,
// ordered by block then room name.
func (d *Dashboard) Doors(ctx context.Context) ([]types.ControllerSummary, error) {
	list, err := d.controllers.ListControllers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Doors: %w", err)
	}
	now := d.now()
	for i := range list {
		list[i].Controller.Online = now.Sub(list[i].Controller.LastSeenAt) <= d.cfg.OnlineWindow
	}
	if list == nil {
		list = []types.ControllerSummary{}
	}
	return list, nil
}

// AccessLogs returns the newest audit rows of the room a controller guards.
func (d *Dashboard) AccessLogs(ctx context.Context, controllerID string, limit int) (string, []types.AccessLogEntry, error) {
	id := strings.TrimSpace(controllerID)
	if id == "" {
		return "", nil, ErrInvalidControllerID
	}
	c, err := d.controllers.GetController(ctx, id)
	if err != nil {
		return "", nil, err
	}

	logs, err := d.logs.ListAccessLogs(ctx, c.RoomID, clampLimit(limit, d.cfg.AccessLogDefault, d.cfg.AccessLogMax))
	if err != nil {
		return "", nil, fmt.Errorf("AccessLogs: %w", err)
	}
	if logs == nil {
		logs = []types.AccessLogEntry{}
	}
	return c.RoomID, logs, nil
}

func (d *Dashboard) Rooms(ctx context.Context) ([]types.Room, error) {
	rooms, err := d.rooms.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("Rooms: %w", err)
	}
	if rooms == nil {
		rooms = []types.Room{}
	}
	return rooms, nil
}

func (d *Dashboard) Users(ctx context.Context) ([]types.User, error) {
	users, err := d.credentials.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Users: %w", err)
	}
	if users == nil {
		users = []types.User{}
	}
	return users, nil
}
