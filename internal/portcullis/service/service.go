// Package service holds the access core: controller registry, access
// decisions, the command queue and the door state projection. Services are
// constructed with their stores; there is no package-level state.
package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/events"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
)

// Not-found conditions are the store's sentinels, re-exported for callers
// that should not import the store package.
var (
	ErrControllerNotFound = store.ErrControllerNotFound
	ErrCommandNotFound    = store.ErrCommandNotFound
	ErrRoomNotFound       = store.ErrRoomNotFound
	ErrUserNotFound       = store.ErrUserNotFound
	ErrCredentialNotFound = store.ErrCredentialNotFound
	ErrPermissionNotFound = store.ErrPermissionNotFound
)

var (
	ErrInvalidControllerID    = errors.New("controllerId is required")
	ErrInvalidRoomID          = errors.New("roomId is required")
	ErrInvalidUserID          = errors.New("userId is required")
	ErrInvalidCredentialType  = errors.New("credentialType must be FINGERPRINT or NFC_TAG")
	ErrInvalidCredentialValue = errors.New("credentialValue is required")
	ErrInvalidCommandType     = errors.New("type must be UNLOCK, LOCK or SYNC_STATE")
	ErrInvalidCommandID       = errors.New("commandId is required")
	ErrInvalidAckStatus       = errors.New("status must be COMPLETED or FAILED")
	ErrInvalidExpiry          = errors.New("expiresInSeconds must be positive")
	ErrInvalidDoorState       = errors.New("doorState must be OPEN, CLOSED or UNKNOWN")
	ErrMissingLockFlag        = errors.New("isLocked is required")

	ErrDuplicateCredential = store.ErrDuplicateCredential
	ErrRoomTaken           = store.ErrRoomTaken
)

var validationErrors = []error{
	ErrInvalidControllerID, ErrInvalidRoomID, ErrInvalidUserID,
	ErrInvalidCredentialType, ErrInvalidCredentialValue,
	ErrInvalidCommandType, ErrInvalidCommandID, ErrInvalidAckStatus, ErrInvalidExpiry,
	ErrInvalidDoorState, ErrMissingLockFlag,
}

// IsValidation reports whether err is an input rejection.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err names a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrControllerNotFound) ||
		errors.Is(err, ErrCommandNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCredentialNotFound) ||
		errors.Is(err, ErrPermissionNotFound)
}

// Option customises a service at construction.
type Option func(*settings)

type settings struct {
	now       func() time.Time
	newID     func() string
	publisher events.Publisher
	logger    *zap.Logger
}

// WithClock replaces time.Now, letting tests drive simulated time.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *settings) { s.newID = newID }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func buildSettings(opts []Option) settings {
	s := settings{
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newUUID,
		publisher: events.Noop{},
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// newUUID returns a time-ordered UUIDv7, falling back to v4.
func newUUID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// clampLimit applies def when limit is not positive and caps it at ceiling.
func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, ceiling)
}
