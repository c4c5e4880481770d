package types

import "time"

type Controller struct {
	ID              string    `json:"id"`
	RoomID          string    `json:"roomId"`
	FirmwareVersion *string   `json:"firmwareVersion"`
	LastSeenAt      time.Time `json:"lastSeenAt"`
}

type Room struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	BlockID            string     `json:"blockId,omitempty"`
	BlockName          string     `json:"blockName,omitempty"`
	DoorState          DoorState  `json:"doorState"`
	IsLocked           *bool      `json:"isLocked"`
	LastStatusUpdateAt *time.Time `json:"lastStatusUpdateAt"`
}

type RegisterRequest struct {
	ControllerID    string `json:"controllerId"`
	RoomID          string `json:"roomId"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}

type HeartbeatRequest struct {
	ControllerID    string `json:"-"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}

type StatusReport struct {
	ControllerID    string    `json:"-"`
	DoorState       DoorState `json:"doorState"`
	IsLocked        *bool     `json:"isLocked"`
	FirmwareVersion string    `json:"firmwareVersion,omitempty"`
}

// ControllerSummary is the dashboard view of one controller.
type ControllerSummary struct {
	ControllerID string          `json:"controllerId"`
	Room         Room            `json:"room"`
	Controller   ControllerState `json:"controller"`
	LastCommand  *CommandSummary `json:"lastCommand"`
}

type ControllerState struct {
	FirmwareVersion *string   `json:"firmwareVersion"`
	LastSeenAt      time.Time `json:"lastSeenAt"`
	Online          bool      `json:"online"`
}
