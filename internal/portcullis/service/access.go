package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/events"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// AccessEngine decides access attempts and keeps the audit log.
type AccessEngine struct {
	controllers store.ControllerStore
	credentials store.CredentialStore
	logs        store.AccessLogStore
	settings
}

func NewAccessEngine(cs store.ControllerStore, creds store.CredentialStore, logs store.AccessLogStore, opts ...Option) *AccessEngine {
	return &AccessEngine{
		controllers: cs,
		credentials: creds,
		logs:        logs,
		settings:    buildSettings(opts),
	}
}

// Evaluate runs the access policy for one attempt. A denial is a normal
// outcome and is returned with a nil error; only invalid input and storage
// failures produce errors. Every decision except UNKNOWN_CONTROLLER appends
// exactly one audit row.
func (e *AccessEngine) Evaluate(ctx context.Context, a types.AccessAttempt) (types.Decision, error) {
	a.ControllerID = strings.TrimSpace(a.ControllerID)
	if a.ControllerID == "" {
		return types.Decision{}, ErrInvalidControllerID
	}
	if !a.CredentialType.Valid() {
		return types.Decision{}, ErrInvalidCredentialType
	}
	if a.CredentialValue == "" {
		return types.Decision{}, ErrInvalidCredentialValue
	}

	now := e.now()

	_, room, err := e.controllers.GetControllerRoom(ctx, a.ControllerID)
	if errors.Is(err, store.ErrControllerNotFound) {
		d := deny(types.ReasonUnknownController, a.RequestID)
		e.publish(ctx, a, d)
		return d, nil
	}
	if err != nil {
		return types.Decision{}, fmt.Errorf("Evaluate resolve controller: %w", err)
	}

	if _, err := e.controllers.TouchController(ctx, a.ControllerID, nil, now); err != nil {
		return types.Decision{}, fmt.Errorf("Evaluate touch controller: %w", err)
	}

	entry := types.AccessLogEntry{
		RoomID:              room.ID,
		CredentialValueUsed: a.CredentialValue,
		Timestamp:           now,
	}
	d := types.Decision{
		RequestID: a.RequestID,
		Room:      &types.DecisionRoom{ID: room.ID, Name: room.Name},
	}

	match, err := e.credentials.FindCredential(ctx, a.CredentialType, a.CredentialValue)
	switch {
	case errors.Is(err, store.ErrCredentialNotFound):
		return e.finish(ctx, a, d, entry, types.ReasonUnknownCredential)
	case err != nil:
		return types.Decision{}, fmt.Errorf("Evaluate resolve credential: %w", err)
	}

	userID, credID := match.User.ID, match.Credential.ID
	entry.UserID = &userID
	entry.CredentialID = &credID
	d.User = &types.DecisionUser{ID: match.User.ID, Name: match.User.Name, IsAdmin: match.User.IsAdmin}

	if !match.Credential.Active {
		return e.finish(ctx, a, d, entry, types.ReasonCredentialDisabled)
	}

	perm, err := e.credentials.FindPermission(ctx, match.User.ID, room.ID)
	switch {
	case errors.Is(err, store.ErrPermissionNotFound):
		return e.finish(ctx, a, d, entry, types.ReasonNoPermission)
	case err != nil:
		return types.Decision{}, fmt.Errorf("Evaluate resolve permission: %w", err)
	}

	if perm.ExpiredAt(now) {
		return e.finish(ctx, a, d, entry, types.ReasonExpiredPermission)
	}

	return e.finish(ctx, a, d, entry, "")
}

// finish stamps the outcome, appends the audit row and publishes. An empty
// reason means GRANTED.
func (e *AccessEngine) finish(ctx context.Context, a types.AccessAttempt, d types.Decision, entry types.AccessLogEntry, reason types.DenyReason) (types.Decision, error) {
	if reason == "" {
		d.Status = types.AccessGranted
	} else {
		r := reason
		d.Status = types.AccessDenied
		d.Reason = &r
	}
	entry.ID = e.newID()
	entry.Status = d.Status
	entry.Reason = d.Reason

	if err := e.logs.AppendAccessLog(ctx, entry); err != nil {
		return types.Decision{}, fmt.Errorf("Evaluate append log: %w", err)
	}
	e.publish(ctx, a, d)
	return d, nil
}

func (e *AccessEngine) publish(ctx context.Context, a types.AccessAttempt, d types.Decision) {
	fields := []zap.Field{
		zap.String("controller_id", a.ControllerID),
		zap.String("status", string(d.Status)),
		zap.String("request_id", a.RequestID),
	}
	if d.Reason != nil {
		fields = append(fields, zap.String("reason", string(*d.Reason)))
	}
	e.logger.Info("access decision", fields...)
	e.logger.Debug("access credential", zap.String("credential_type", string(a.CredentialType)), zap.String("credential_value", a.CredentialValue))

	e.publisher.Publish(ctx, events.Event{
		Kind:         events.KindAccessDecision,
		ControllerID: a.ControllerID,
		At:           e.now(),
		Decision:     &d,
	})
}

func deny(reason types.DenyReason, requestID string) types.Decision {
	return types.Decision{Status: types.AccessDenied, Reason: &reason, RequestID: requestID}
}
