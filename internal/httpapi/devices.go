package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type controllerResponse struct {
	Controller types.Controller `json:"controller"`
}

type roomResponse struct {
	Room types.Room `json:"room"`
}

type commandResponse struct {
	Command types.Command `json:"command"`
}

type commandsResponse struct {
	Commands []types.Command `json:"commands"`
}

type ackResponse struct {
	Command ackedCommand `json:"command"`
}

type ackedCommand struct {
	ID          string              `json:"id"`
	Status      types.CommandStatus `json:"status"`
	ProcessedAt *time.Time          `json:"processedAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !decode(w, r, maxDeviceBody, &req) {
		return
	}

	c, err := s.core.Registry.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusOK, controllerResponse{Controller: c})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	if !decode(w, r, maxDeviceBody, &req) {
		return
	}
	req.ControllerID = chi.URLParam(r, "controllerId")

	c, err := s.core.Registry.Heartbeat(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusOK, controllerResponse{Controller: c})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req types.StatusReport
	if !decode(w, r, maxDeviceBody, &req) {
		return
	}
	req.ControllerID = chi.URLParam(r, "controllerId")

	room, err := s.core.Doors.ApplyStatusReport(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusOK, roomResponse{Room: room})
}

// handleAccessAttempt always answers 200 with a decision; denials are not
// errors.
func (s *Server) handleAccessAttempt(w http.ResponseWriter, r *http.Request) {
	var req types.AccessAttempt
	if !decode(w, r, maxDeviceBody, &req) {
		return
	}
	req.ControllerID = chi.URLParam(r, "controllerId")

	d, err := s.core.Access.Evaluate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusOK, d)
}

func (s *Server) handleDeviceCreateCommand(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCommandRequest
	if !decode(w, r, maxDeviceBody, &req) {
		return
	}
	req.ControllerID = chi.URLParam(r, "controllerId")

	c, err := s.core.Commands.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusCreated, commandResponse{Command: c})
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req types.PullRequest
	if !decode(w, r, maxDeviceBody, &req) {
		return
	}
	req.ControllerID = chi.URLParam(r, "controllerId")

	cmds, err := s.core.Commands.Pull(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusOK, commandsResponse{Commands: cmds})
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	var req types.AckRequest
	if !decode(w, r, maxDeviceBody, &req) {
		return
	}
	req.ControllerID = chi.URLParam(r, "controllerId")
	req.CommandID = chi.URLParam(r, "commandId")

	c, err := s.core.Commands.Ack(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusOK, ackResponse{Command: ackedCommand{
		ID:          c.ID,
		Status:      c.Status,
		ProcessedAt: c.ProcessedAt,
	}})
}
