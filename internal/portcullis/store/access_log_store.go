package store

import (
	"context"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// AccessLogStore persists access decisions as an append-only audit log.
type AccessLogStore interface {
	AppendAccessLog(ctx context.Context, e types.AccessLogEntry) error

	// ListAccessLogs returns the newest entries for a room first, with the
	// user's name joined in where known.
	ListAccessLogs(ctx context.Context, roomID string, limit int) ([]types.AccessLogEntry, error)
}
