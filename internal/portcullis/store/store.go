// Package store defines the persistence contracts of the access core.
// Implementations live in sqlstore (SQLite/Postgres) and memory (tests, dev).
package store

import "errors"

var (
	ErrControllerNotFound = errors.New("controller not found")
	ErrCommandNotFound    = errors.New("command not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrPermissionNotFound = errors.New("permission not found")

	// ErrRoomTaken is returned when registering a controller for a room that
	// is already bound to a different controller.
	ErrRoomTaken = errors.New("room already bound to another controller")

	// ErrDuplicateCredential is returned when a credential value is already
	// issued, whatever its type.
	ErrDuplicateCredential = errors.New("credential value already issued")
)
