package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func TestRegister_IdempotentUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.core.Registry.Register(ctx, types.RegisterRequest{
		ControllerID: "ctrl-1", RoomID: roomLab, FirmwareVersion: "1.0.0",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	f.clock.Advance(time.Minute)
	c, err := f.core.Registry.Register(ctx, types.RegisterRequest{
		ControllerID: "ctrl-1", RoomID: roomLab, FirmwareVersion: "1.2.0",
	})
	if err != nil {
		t.Fatalf("second register: %v", err)
	}

	if c.FirmwareVersion == nil || *c.FirmwareVersion != "1.2.0" {
		t.Errorf("expected firmware 1.2.0, got %v", c.FirmwareVersion)
	}
	if !c.LastSeenAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("expected last seen refreshed, got %s", c.LastSeenAt)
	}

	doors, err := f.core.Dashboard.Doors(ctx)
	if err != nil {
		t.Fatalf("Doors: %v", err)
	}
	if len(doors) != 1 {
		t.Fatalf("expected exactly one controller record, got %d", len(doors))
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.core.Registry.Register(ctx, types.RegisterRequest{RoomID: roomLab})
	if !errors.Is(err, service.ErrInvalidControllerID) {
		t.Errorf("expected ErrInvalidControllerID, got %v", err)
	}
	_, err = f.core.Registry.Register(ctx, types.RegisterRequest{ControllerID: "ctrl-1", RoomID: "  "})
	if !errors.Is(err, service.ErrInvalidRoomID) {
		t.Errorf("expected ErrInvalidRoomID, got %v", err)
	}
	if !service.IsValidation(err) {
		t.Error("expected IsValidation to recognise ErrInvalidRoomID")
	}
}

func TestHeartbeat_UnknownControllerNotCreated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.core.Registry.Heartbeat(ctx, types.HeartbeatRequest{ControllerID: "ghost"})
	if !errors.Is(err, service.ErrControllerNotFound) {
		t.Fatalf("expected ErrControllerNotFound, got %v", err)
	}
	if !service.IsNotFound(err) {
		t.Error("expected IsNotFound")
	}

	if _, err := f.core.Registry.Lookup(ctx, "ghost"); !errors.Is(err, service.ErrControllerNotFound) {
		t.Errorf("heartbeat must not create controllers, lookup got %v", err)
	}
}

func TestHeartbeat_RefreshesLivenessAndFirmware(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.core.Registry.Register(ctx, types.RegisterRequest{
		ControllerID: "ctrl-1", RoomID: roomLab, FirmwareVersion: "1.0.0",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	f.clock.Advance(45 * time.Second)
	c, err := f.core.Registry.Heartbeat(ctx, types.HeartbeatRequest{ControllerID: "ctrl-1"})
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if !c.LastSeenAt.Equal(epoch.Add(45 * time.Second)) {
		t.Errorf("last seen not refreshed: %s", c.LastSeenAt)
	}
	if c.FirmwareVersion == nil || *c.FirmwareVersion != "1.0.0" {
		t.Errorf("firmware should be kept when absent, got %v", c.FirmwareVersion)
	}

	c, err = f.core.Registry.Heartbeat(ctx, types.HeartbeatRequest{ControllerID: "ctrl-1", FirmwareVersion: "1.0.1"})
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if *c.FirmwareVersion != "1.0.1" {
		t.Errorf("expected firmware 1.0.1, got %s", *c.FirmwareVersion)
	}
}

func TestRegister_RoomBoundToAnotherController(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.core.Registry.Register(ctx, types.RegisterRequest{ControllerID: "ctrl-1", RoomID: roomLab}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := f.core.Registry.Register(ctx, types.RegisterRequest{ControllerID: "ctrl-2", RoomID: roomLab})
	if !errors.Is(err, service.ErrRoomTaken) {
		t.Errorf("expected ErrRoomTaken, got %v", err)
	}
}
