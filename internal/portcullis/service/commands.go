package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/events"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// CommandConfig holds the queue's policy knobs. Zero values take defaults.
type CommandConfig struct {
	// UnlockTTL is the expiry given to UNLOCK commands created without one.
	UnlockTTL time.Duration

	PullDefault    int
	PullMax        int
	HistoryDefault int
	HistoryMax     int
}

func (c CommandConfig) withDefaults() CommandConfig {
	if c.UnlockTTL <= 0 {
		c.UnlockTTL = 30 * time.Second
	}
	if c.PullDefault <= 0 {
		c.PullDefault = 10
	}
	if c.PullMax <= 0 {
		c.PullMax = 50
	}
	if c.HistoryDefault <= 0 {
		c.HistoryDefault = 20
	}
	if c.HistoryMax <= 0 {
		c.HistoryMax = 100
	}
	return c
}

// CommandQueue is the per-controller queue of administrative commands:
//
//	PENDING -> SENT -> COMPLETED | FAILED
//	PENDING -> EXPIRED (lazily, when a pull finds the deadline passed)
type CommandQueue struct {
	store       store.CommandStore
	controllers store.ControllerStore
	cfg         CommandConfig
	settings
}

func NewCommandQueue(st store.CommandStore, cs store.ControllerStore, cfg CommandConfig, opts ...Option) *CommandQueue {
	return &CommandQueue{
		store:       st,
		controllers: cs,
		cfg:         cfg.withDefaults(),
		settings:    buildSettings(opts),
	}
}

// Create queues a PENDING command. The controller is not required to exist.
//
// Expiry: an explicit positive expiresInSeconds always wins; otherwise UNLOCK
// gets the default TTL and every other type never expires.
func (q *CommandQueue) Create(ctx context.Context, req types.CreateCommandRequest) (types.Command, error) {
	id := strings.TrimSpace(req.ControllerID)
	if id == "" {
		return types.Command{}, ErrInvalidControllerID
	}
	if !req.Type.Valid() {
		return types.Command{}, ErrInvalidCommandType
	}
	if req.ExpiresInSeconds != nil && *req.ExpiresInSeconds < 0 {
		return types.Command{}, ErrInvalidExpiry
	}

	now := q.now()
	var expiresAt *time.Time
	switch {
	case req.ExpiresInSeconds != nil && *req.ExpiresInSeconds > 0:
		t := now.Add(time.Duration(*req.ExpiresInSeconds) * time.Second)
		expiresAt = &t
	case req.Type == types.CommandUnlock:
		t := now.Add(q.cfg.UnlockTTL)
		expiresAt = &t
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	c, err := q.store.CreateCommand(ctx, types.Command{
		ID:           q.newID(),
		ControllerID: id,
		Type:         req.Type,
		Status:       types.CommandPending,
		Payload:      payload,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	})
	if err != nil {
		return types.Command{}, fmt.Errorf("Create: %w", err)
	}

	q.logger.Info("command queued",
		zap.String("controller_id", id),
		zap.String("command_id", c.ID),
		zap.String("type", string(c.Type)))
	q.publish(ctx, events.KindCommandCreated, c)
	return c, nil
}

// CreateForController is Create preceded by an existence check, for the
// administrative surface.
func (q *CommandQueue) CreateForController(ctx context.Context, req types.CreateCommandRequest) (types.Command, error) {
	id := strings.TrimSpace(req.ControllerID)
	if id == "" {
		return types.Command{}, ErrInvalidControllerID
	}
	if _, err := q.controllers.GetController(ctx, id); err != nil {
		return types.Command{}, err
	}
	return q.Create(ctx, req)
}

// Pull claims up to limit pending commands in creation order and returns
// them in SENT. Pending commands past their deadline are marked EXPIRED in
// the same transaction and left out of the result. A command is returned by
// at most one Pull.
func (q *CommandQueue) Pull(ctx context.Context, req types.PullRequest) ([]types.Command, error) {
	id := strings.TrimSpace(req.ControllerID)
	if id == "" {
		return nil, ErrInvalidControllerID
	}
	limit := clampLimit(req.Limit, q.cfg.PullDefault, q.cfg.PullMax)

	res, err := q.store.ClaimPending(ctx, id, limit, q.now())
	if err != nil {
		return nil, fmt.Errorf("Pull: %w", err)
	}

	for _, c := range res.Expired {
		q.logger.Info("command expired",
			zap.String("controller_id", id),
			zap.String("command_id", c.ID))
		q.publish(ctx, events.KindCommandExpired, c)
	}
	for _, c := range res.Sent {
		q.publish(ctx, events.KindCommandSent, c)
	}

	if res.Sent == nil {
		return []types.Command{}, nil
	}
	return res.Sent, nil
}

// Ack records a device's outcome for a command. The prior state is not
// checked, so repeated or late acknowledgements simply overwrite.
func (q *CommandQueue) Ack(ctx context.Context, req types.AckRequest) (types.Command, error) {
	id := strings.TrimSpace(req.CommandID)
	if id == "" {
		return types.Command{}, ErrInvalidCommandID
	}
	if !req.Status.IsAckStatus() {
		return types.Command{}, ErrInvalidAckStatus
	}

	c, err := q.store.AckCommand(ctx, store.AckRecord{
		CommandID:     id,
		Status:        req.Status,
		ResultPayload: req.ResultPayload,
		ErrorMessage:  req.ErrorMessage,
		ProcessedAt:   q.now(),
	})
	if err != nil {
		return types.Command{}, err
	}

	fields := []zap.Field{
		zap.String("controller_id", c.ControllerID),
		zap.String("command_id", c.ID),
		zap.String("status", string(c.Status)),
	}
	if c.ErrorMessage != nil {
		fields = append(fields, zap.String("error_message", *c.ErrorMessage))
	}
	q.logger.Info("command acknowledged", fields...)
	q.publish(ctx, events.KindCommandAcked, c)
	return c, nil
}

// History lists a registered controller's commands, newest first.
func (q *CommandQueue) History(ctx context.Context, controllerID string, limit int) ([]types.Command, error) {
	id := strings.TrimSpace(controllerID)
	if id == "" {
		return nil, ErrInvalidControllerID
	}
	if _, err := q.controllers.GetController(ctx, id); err != nil {
		return nil, err
	}

	cmds, err := q.store.ListCommands(ctx, id, clampLimit(limit, q.cfg.HistoryDefault, q.cfg.HistoryMax))
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	if cmds == nil {
		cmds = []types.Command{}
	}
	return cmds, nil
}

func (q *CommandQueue) publish(ctx context.Context, kind events.Kind, c types.Command) {
	sum := c.Summary()
	q.publisher.Publish(ctx, events.Event{
		Kind:         kind,
		ControllerID: c.ControllerID,
		At:           q.now(),
		Command:      &sum,
	})
}
