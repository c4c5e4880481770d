package bridge

import (
	"context"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// Core is what the bridge needs from the access core. It is satisfied
// in-process by InProcess and over HTTP by apiclient.Client.
// Implementations report an unknown controller with
// service.ErrControllerNotFound.
type Core interface {
	Register(ctx context.Context, req types.RegisterRequest) (types.Controller, error)
	Heartbeat(ctx context.Context, req types.HeartbeatRequest) (types.Controller, error)
	ReportStatus(ctx context.Context, rep types.StatusReport) (types.Room, error)
	Evaluate(ctx context.Context, a types.AccessAttempt) (types.Decision, error)
	CreateCommand(ctx context.Context, req types.CreateCommandRequest) (types.Command, error)
	Pull(ctx context.Context, req types.PullRequest) ([]types.Command, error)
	Ack(ctx context.Context, req types.AckRequest) (types.Command, error)
}

// InProcess adapts a core running in the same process.
type InProcess struct {
	core *service.Core
}

func NewInProcess(core *service.Core) InProcess {
	return InProcess{core: core}
}

func (p InProcess) Register(ctx context.Context, req types.RegisterRequest) (types.Controller, error) {
	return p.core.Registry.Register(ctx, req)
}

func (p InProcess) Heartbeat(ctx context.Context, req types.HeartbeatRequest) (types.Controller, error) {
	return p.core.Registry.Heartbeat(ctx, req)
}

func (p InProcess) ReportStatus(ctx context.Context, rep types.StatusReport) (types.Room, error) {
	return p.core.Doors.ApplyStatusReport(ctx, rep)
}

func (p InProcess) Evaluate(ctx context.Context, a types.AccessAttempt) (types.Decision, error) {
	return p.core.Access.Evaluate(ctx, a)
}

func (p InProcess) CreateCommand(ctx context.Context, req types.CreateCommandRequest) (types.Command, error) {
	return p.core.Commands.Create(ctx, req)
}

func (p InProcess) Pull(ctx context.Context, req types.PullRequest) ([]types.Command, error) {
	return p.core.Commands.Pull(ctx, req)
}

func (p InProcess) Ack(ctx context.Context, req types.AckRequest) (types.Command, error) {
	return p.core.Commands.Ack(ctx, req)
}
