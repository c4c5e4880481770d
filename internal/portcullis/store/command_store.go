package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ClaimResult is the outcome of one pull.
type ClaimResult struct {
	// Sent holds the delivered commands, oldest first, already in SENT.
	Sent []types.Command
	// Expired holds commands found past their deadline and marked EXPIRED.
	Expired []types.Command
}

type AckRecord struct {
	CommandID     string
	Status        types.CommandStatus
	ResultPayload map[string]any
	ErrorMessage  *string
	ProcessedAt   time.Time
}

type CommandStore interface {
	CreateCommand(ctx context.Context, c types.Command) (types.Command, error)

	// ClaimPending selects up to limit PENDING commands of a controller in
	// creation order, expires those whose deadline is at or before now and
	// marks the rest SENT, all in one transaction. A command is returned in
	// Sent by at most one call.
	ClaimPending(ctx context.Context, controllerID string, limit int, now time.Time) (ClaimResult, error)

	// AckCommand stamps a terminal outcome. The prior state is not checked.
	AckCommand(ctx context.Context, rec AckRecord) (types.Command, error)

	GetCommand(ctx context.Context, id string) (types.Command, error)

	// ListCommands returns a controller's commands, newest first.
	ListCommands(ctx context.Context, controllerID string, limit int) ([]types.Command, error)
}
