package service

import "github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"

// Stores groups the persistence the core needs. A single memory.Store can
// fill every field.
type Stores struct {
	Controllers store.ControllerStore
	Rooms       store.RoomStore
	Credentials store.CredentialStore
	AccessLogs  store.AccessLogStore
	Commands    store.CommandStore
}

type Config struct {
	Commands  CommandConfig
	Dashboard DashboardConfig
}

// Core wires every service over one set of stores.
type Core struct {
	Registry    *Registry
	Access      *AccessEngine
	Commands    *CommandQueue
	Doors       *DoorStates
	Dashboard   *Dashboard
	Credentials *Credentials
}

func NewCore(st Stores, cfg Config, opts ...Option) *Core {
	return &Core{
		Registry:    NewRegistry(st.Controllers, opts...),
		Access:      NewAccessEngine(st.Controllers, st.Credentials, st.AccessLogs, opts...),
		Commands:    NewCommandQueue(st.Commands, st.Controllers, cfg.Commands, opts...),
		Doors:       NewDoorStates(st.Rooms, opts...),
		Dashboard:   NewDashboard(st.Controllers, st.Rooms, st.Credentials, st.AccessLogs, cfg.Dashboard, opts...),
		Credentials: NewCredentials(st.Credentials, opts...),
	}
}
