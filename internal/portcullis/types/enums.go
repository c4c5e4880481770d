package types

import "fmt"

// CredentialType identifies how a credential was presented to a controller.
type CredentialType string

const (
	CredentialFingerprint CredentialType = "FINGERPRINT"
	CredentialNFCTag      CredentialType = "NFC_TAG"
)

func (t CredentialType) Valid() bool {
	switch t {
	case CredentialFingerprint, CredentialNFCTag:
		return true
	}
	return false
}

// AccessStatus is the outcome of one access attempt.
type AccessStatus string

const (
	AccessGranted AccessStatus = "GRANTED"
	AccessDenied  AccessStatus = "DENIED"
)

// DenyReason explains a DENIED decision. Granted decisions carry no reason.
type DenyReason string

const (
	ReasonUnknownController  DenyReason = "UNKNOWN_CONTROLLER"
	ReasonUnknownCredential  DenyReason = "UNKNOWN_CREDENTIAL"
	ReasonCredentialDisabled DenyReason = "CREDENTIAL_DISABLED"
	ReasonNoPermission       DenyReason = "NO_PERMISSION"
	ReasonExpiredPermission  DenyReason = "EXPIRED_PERMISSION"
)

// CommandType is an administrative instruction for a controller.
type CommandType string

const (
	CommandUnlock    CommandType = "UNLOCK"
	CommandLock      CommandType = "LOCK"
	CommandSyncState CommandType = "SYNC_STATE"
)

func (t CommandType) Valid() bool {
	switch t {
	case CommandUnlock, CommandLock, CommandSyncState:
		return true
	}
	return false
}

// CommandStatus is a state of the command lifecycle:
//
//	PENDING -> SENT -> COMPLETED | FAILED
//	PENDING -> EXPIRED
type CommandStatus string

const (
	CommandPending   CommandStatus = "PENDING"
	CommandSent      CommandStatus = "SENT"
	CommandCompleted CommandStatus = "COMPLETED"
	CommandFailed    CommandStatus = "FAILED"
	CommandExpired   CommandStatus = "EXPIRED"
)

func (s CommandStatus) Valid() bool {
	switch s {
	case CommandPending, CommandSent, CommandCompleted, CommandFailed, CommandExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transition is modelled from s.
func (s CommandStatus) Terminal() bool {
	switch s {
	case CommandCompleted, CommandFailed, CommandExpired:
		return true
	}
	return false
}

// IsAckStatus reports whether s is an outcome a controller may acknowledge.
func (s CommandStatus) IsAckStatus() bool {
	return s == CommandCompleted || s == CommandFailed
}

// DoorState is the physical open/closed state reported by a controller.
type DoorState string

const (
	DoorOpen    DoorState = "OPEN"
	DoorClosed  DoorState = "CLOSED"
	DoorUnknown DoorState = "UNKNOWN"
)

func (s DoorState) Valid() bool {
	switch s {
	case DoorOpen, DoorClosed, DoorUnknown:
		return true
	}
	return false
}

// ParseCommandType converts a wire value into a CommandType.
func ParseCommandType(v string) (CommandType, error) {
	t := CommandType(v)
	if !t.Valid() {
		return "", fmt.Errorf("invalid command type %q", v)
	}
	return t, nil
}

// ParseCredentialType converts a wire value into a CredentialType.
func ParseCredentialType(v string) (CredentialType, error) {
	t := CredentialType(v)
	if !t.Valid() {
		return "", fmt.Errorf("invalid credential type %q", v)
	}
	return t, nil
}

// ParseDoorState converts a wire value into a DoorState.
func ParseDoorState(v string) (DoorState, error) {
	s := DoorState(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid door state %q", v)
	}
	return s, nil
}
