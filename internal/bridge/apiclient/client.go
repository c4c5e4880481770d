// Package apiclient implements the bridge's view of the access core over
// the device HTTP API, for a bridge running outside the API process.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ErrRejected wraps a 4xx answer other than the not-found codes.
var ErrRejected = errors.New("request rejected by api")

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New builds a client for baseURL. Requests are not retried: a pull that
// reached the server has already moved its commands to SENT.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: client, logger: logger}
}

func (c *Client) post(ctx context.Context, path string, params map[string]string, body, result any) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(params).
		SetBody(body).
		SetResult(result).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	if !resp.IsError() {
		return nil
	}

	c.logger.Debug("api error",
		zap.String("path", resp.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("code", apiErr.Code))

	switch {
	case apiErr.Code == "CONTROLLER_NOT_FOUND":
		return service.ErrControllerNotFound
	case apiErr.Code == "COMMAND_NOT_FOUND":
		return service.ErrCommandNotFound
	case resp.StatusCode() < http.StatusInternalServerError:
		return fmt.Errorf("%w (%d): %s", ErrRejected, resp.StatusCode(), apiErr.Error)
	default:
		return fmt.Errorf("api request failed (%d): %s", resp.StatusCode(), resp.String())
	}
}

func (c *Client) Register(ctx context.Context, req types.RegisterRequest) (types.Controller, error) {
	var out struct {
		Controller types.Controller `json:"controller"`
	}
	err := c.post(ctx, "/v1/devices/register", nil, req, &out)
	return out.Controller, err
}

func (c *Client) Heartbeat(ctx context.Context, req types.HeartbeatRequest) (types.Controller, error) {
	var out struct {
		Controller types.Controller `json:"controller"`
	}
	err := c.post(ctx, "/v1/devices/{controllerId}/heartbeat",
		map[string]string{"controllerId": req.ControllerID}, req, &out)
	return out.Controller, err
}

func (c *Client) ReportStatus(ctx context.Context, rep types.StatusReport) (types.Room, error) {
	var out struct {
		Room types.Room `json:"room"`
	}
	err := c.post(ctx, "/v1/devices/{controllerId}/status",
		map[string]string{"controllerId": rep.ControllerID}, rep, &out)
	return out.Room, err
}

func (c *Client) Evaluate(ctx context.Context, a types.AccessAttempt) (types.Decision, error) {
	var out types.Decision
	err := c.post(ctx, "/v1/devices/{controllerId}/access-attempt",
		map[string]string{"controllerId": a.ControllerID}, a, &out)
	return out, err
}

func (c *Client) CreateCommand(ctx context.Context, req types.CreateCommandRequest) (types.Command, error) {
	var out struct {
		Command types.Command `json:"command"`
	}
	err := c.post(ctx, "/v1/devices/{controllerId}/commands",
		map[string]string{"controllerId": req.ControllerID}, req, &out)
	return out.Command, err
}

func (c *Client) Pull(ctx context.Context, req types.PullRequest) ([]types.Command, error) {
	var out struct {
		Commands []types.Command `json:"commands"`
	}
	err := c.post(ctx, "/v1/devices/{controllerId}/commands/pull",
		map[string]string{"controllerId": req.ControllerID}, req, &out)
	return out.Commands, err
}

func (c *Client) Ack(ctx context.Context, req types.AckRequest) (types.Command, error) {
	if req.CommandID == "" {
		return types.Command{}, service.ErrInvalidCommandID
	}
	var out struct {
		Command types.Command `json:"command"`
	}
	err := c.post(ctx, "/v1/devices/{controllerId}/commands/{commandId}/ack",
		map[string]string{"controllerId": req.ControllerID, "commandId": req.CommandID}, req, &out)
	return out.Command, err
}
