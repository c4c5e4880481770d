package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type doorsResponse struct {
	Doors []types.ControllerSummary `json:"doors"`
}

type accessLogsResponse struct {
	RoomID string                 `json:"roomId"`
	Logs   []types.AccessLogEntry `json:"logs"`
}

type roomsResponse struct {
	Rooms []types.Room `json:"rooms"`
}

type usersResponse struct {
	Users []types.User `json:"users"`
}

type credentialResponse struct {
	Credential types.Credential `json:"credential"`
}

type permissionResponse struct {
	Permission types.Permission `json:"permission"`
}

// queryLimit parses ?limit=. Missing or malformed values fall back to the
// service default.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleListDoors(w http.ResponseWriter, r *http.Request) {
	doors, err := s.core.Dashboard.Doors(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doorsResponse{Doors: doors})
}

func (s *Server) handleCommandHistory(w http.ResponseWriter, r *http.Request) {
	cmds, err := s.core.Commands.History(r.Context(), chi.URLParam(r, "controllerId"), queryLimit(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandsResponse{Commands: cmds})
}

func (s *Server) handleAdminCreateCommand(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCommandRequest
	if !decode(w, r, maxAdminBody, &req) {
		return
	}
	req.ControllerID = chi.URLParam(r, "controllerId")

	c, err := s.core.Commands.CreateForController(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, commandResponse{Command: c})
}

func (s *Server) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	roomID, logs, err := s.core.Dashboard.AccessLogs(r.Context(), chi.URLParam(r, "controllerId"), queryLimit(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accessLogsResponse{RoomID: roomID, Logs: logs})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.core.Dashboard.Rooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roomsResponse{Rooms: rooms})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.core.Dashboard.Users(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

func (s *Server) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	var req service.IssueCredentialRequest
	if !decode(w, r, maxAdminBody, &req) {
		return
	}
	req.UserID = chi.URLParam(r, "userId")

	cred, err := s.core.Credentials.Issue(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, credentialResponse{Credential: cred})
}

func (s *Server) handleDeactivateCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := s.core.Credentials.Deactivate(r.Context(), chi.URLParam(r, "credentialId"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{Credential: cred})
}

func (s *Server) handleGrantPermission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	if !decode(w, r, maxAdminBody, &body) {
		return
	}

	p, err := s.core.Credentials.Grant(r.Context(), service.GrantPermissionRequest{
		UserID:    chi.URLParam(r, "userId"),
		RoomID:    chi.URLParam(r, "roomId"),
		ExpiresAt: body.ExpiresAt,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionResponse{Permission: p})
}

func (s *Server) handleRevokePermission(w http.ResponseWriter, r *http.Request) {
	if err := s.core.Credentials.Revoke(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "roomId")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
