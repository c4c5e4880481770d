// Package bridge connects door controllers on an MQTT bus to the access
// core. Device messages arrive on "{prefix}/{controllerId}/{kind}"; the
// bridge forwards them to the core and publishes decisions and queued
// commands back.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/bridge/mqtt"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// Broker is the slice of the MQTT client the bridge uses.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler mqtt.MessageHandler) error
}

type Config struct {
	Topics Topics
	Poll   PollerConfig

	// HandlerTimeout bounds the core call for one message. Defaults to 10s.
	HandlerTimeout time.Duration
}

type Bridge struct {
	core    Core
	broker  Broker
	topics  Topics
	poller  *Poller
	timeout time.Duration
	logger  *zap.Logger
	ctx     context.Context
}

func New(core Core, broker Broker, cfg Config, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 10 * time.Second
	}
	return &Bridge{
		core:    core,
		broker:  broker,
		topics:  cfg.Topics,
		poller:  NewPoller(core, broker, cfg.Topics, cfg.Poll, logger.Named("poller")),
		timeout: cfg.HandlerTimeout,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Poller exposes the command poller, mainly for tests.
func (b *Bridge) Poller() *Poller { return b.poller }

// Start arms the poller and subscribes to every inbound topic. Messages are
// handled with contexts derived from ctx.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx = ctx
	b.poller.Start(ctx)
	for _, filter := range b.topics.Subscriptions() {
		if err := b.broker.Subscribe(filter, b.HandleMessage); err != nil {
			return fmt.Errorf("subscribe %s: %w", filter, err)
		}
	}
	b.logger.Info("bridge started", zap.Strings("topics", b.topics.Subscriptions()))
	return nil
}

// Stop halts every command poll loop.
func (b *Bridge) Stop() {
	b.poller.Stop()
	b.logger.Info("bridge stopped")
}

// HandleMessage routes one inbound message. Unknown topics are ignored; a
// returned error means the message was dropped.
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	controllerID, kind, ok := b.topics.Parse(topic)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	var err error
	switch kind {
	case KindRegister:
		err = b.handleRegister(ctx, controllerID, payload)
	case KindHeartbeat:
		err = b.handleHeartbeat(ctx, controllerID, payload)
	case KindStatus:
		err = b.handleStatus(ctx, controllerID, payload)
	case KindAccessAttempt:
		err = b.handleAccessAttempt(ctx, controllerID, payload)
	case KindCommandResult:
		err = b.handleCommandResult(ctx, controllerID, payload)
	}
	if err != nil {
		b.logger.Error("failed to process message",
			zap.String("controller_id", controllerID),
			zap.String("topic", topic),
			zap.Error(err))
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// decodePayload treats an empty or malformed payload as an empty object, so
// the core's validation decides what to reject. v must be a non-nil pointer.
// A payload that fails part way, such as a field of the wrong type, leaves v
// zeroed rather than half filled.
func (b *Bridge) decodePayload(payload []byte, v any) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return
	}
	if err := json.Unmarshal(payload, v); err != nil {
		reflect.ValueOf(v).Elem().SetZero()
		b.logger.Warn("invalid JSON payload, treating as empty object",
			zap.ByteString("payload", payload),
			zap.Error(err))
	}
}

func (b *Bridge) handleRegister(ctx context.Context, controllerID string, payload []byte) error {
	var body struct {
		RoomID          string `json:"roomId"`
		FirmwareVersion string `json:"firmwareVersion"`
	}
	b.decodePayload(payload, &body)

	c, err := b.core.Register(ctx, types.RegisterRequest{
		ControllerID:    controllerID,
		RoomID:          body.RoomID,
		FirmwareVersion: body.FirmwareVersion,
	})
	if err != nil {
		return err
	}
	b.logger.Info("controller registered",
		zap.String("controller_id", c.ID),
		zap.String("room_id", c.RoomID))
	b.poller.Ensure(controllerID)
	return nil
}

func (b *Bridge) handleHeartbeat(ctx context.Context, controllerID string, payload []byte) error {
	var req types.HeartbeatRequest
	b.decodePayload(payload, &req)
	req.ControllerID = controllerID

	if _, err := b.core.Heartbeat(ctx, req); err != nil {
		if errors.Is(err, service.ErrControllerNotFound) {
			b.logger.Info("heartbeat from unregistered controller",
				zap.String("controller_id", controllerID))
			return b.publishJSON(b.topics.RegisterRequired(controllerID), map[string]string{"controllerId": controllerID})
		}
		return err
	}
	b.poller.Ensure(controllerID)
	return nil
}

func (b *Bridge) handleStatus(ctx context.Context, controllerID string, payload []byte) error {
	var rep types.StatusReport
	b.decodePayload(payload, &rep)
	rep.ControllerID = controllerID

	room, err := b.core.ReportStatus(ctx, rep)
	if err != nil {
		return err
	}
	b.logger.Debug("door status updated",
		zap.String("controller_id", controllerID),
		zap.String("room_id", room.ID),
		zap.String("door_state", string(room.DoorState)))
	return nil
}

func (b *Bridge) handleAccessAttempt(ctx context.Context, controllerID string, payload []byte) error {
	var a types.AccessAttempt
	b.decodePayload(payload, &a)
	a.ControllerID = controllerID

	d, err := b.core.Evaluate(ctx, a)
	if err != nil {
		return err
	}
	if err := b.publishJSON(b.topics.AccessResult(controllerID), d); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("controller_id", controllerID),
		zap.String("status", string(d.Status)),
	}
	if d.Reason != nil {
		fields = append(fields, zap.String("reason", string(*d.Reason)))
	}
	b.logger.Info("processed access attempt", fields...)

	if d.Granted() {
		b.enqueueUnlock(ctx, controllerID)
	}
	return nil
}

// enqueueUnlock queues an UNLOCK with the default expiry and delivers it
// straight away. Failures are logged; the decision was already published.
func (b *Bridge) enqueueUnlock(ctx context.Context, controllerID string) {
	if _, err := b.core.CreateCommand(ctx, types.CreateCommandRequest{
		ControllerID: controllerID,
		Type:         types.CommandUnlock,
		Payload:      map[string]any{},
	}); err != nil {
		b.logger.Error("unable to enqueue unlock command",
			zap.String("controller_id", controllerID),
			zap.Error(err))
		return
	}
	if _, err := b.poller.PollNow(ctx, controllerID); err != nil {
		b.logger.Error("unable to deliver unlock command",
			zap.String("controller_id", controllerID),
			zap.Error(err))
	}
}

func (b *Bridge) handleCommandResult(ctx context.Context, controllerID string, payload []byte) error {
	var body struct {
		CommandID     string              `json:"commandId"`
		Status        types.CommandStatus `json:"status"`
		ResultPayload map[string]any      `json:"resultPayload"`
		ErrorMessage  *string             `json:"errorMessage"`
	}
	b.decodePayload(payload, &body)

	c, err := b.core.Ack(ctx, types.AckRequest{
		ControllerID:  controllerID,
		CommandID:     body.CommandID,
		Status:        body.Status,
		ResultPayload: body.ResultPayload,
		ErrorMessage:  body.ErrorMessage,
	})
	if err != nil {
		return err
	}
	b.logger.Debug("command result recorded",
		zap.String("controller_id", controllerID),
		zap.String("command_id", c.ID),
		zap.String("status", string(c.Status)))
	return nil
}

func (b *Bridge) publishJSON(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.broker.Publish(topic, data)
}
