package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
)

const (
	codeValidation         = "VALIDATION_ERROR"
	codeControllerNotFound = "CONTROLLER_NOT_FOUND"
	codeCommandNotFound    = "COMMAND_NOT_FOUND"
	codeNotFound           = "NOT_FOUND"
	codeConflict           = "CONFLICT"
	codeInternal           = "INTERNAL_ERROR"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeBody(w, r, status, errorBody{Error: msg, Code: code})
}

// writeServiceError maps a core error onto the HTTP boundary. Anything
// unrecognised is logged and hidden behind a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrControllerNotFound):
		writeError(w, r, http.StatusNotFound, codeControllerNotFound, "Controller not registered")
	case errors.Is(err, service.ErrCommandNotFound):
		writeError(w, r, http.StatusNotFound, codeCommandNotFound, "Command not found")
	case service.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
	case service.IsValidation(err):
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, service.ErrRoomTaken), errors.Is(err, service.ErrDuplicateCredential):
		writeError(w, r, http.StatusConflict, codeConflict, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, codeInternal, "unexpected server error")
	}
}

// decode reads the body and answers 400 itself when it cannot.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	if err := readBody(r, limit, v); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeValidation, err.Error())
			return false
		}
		writeError(w, r, http.StatusBadRequest, codeValidation, "invalid request body")
		return false
	}
	return true
}
