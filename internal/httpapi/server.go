// Package httpapi exposes the access core over HTTP: the device routes the
// bridge calls and the administrative routes behind the dashboard.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
)

type Dependencies struct {
	Logger            *zap.Logger
	Addr              string
	ReadHeaderTimeout time.Duration
	Core              *service.Core

	// Ready backs /healthz. Nil means always healthy.
	Ready func(context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	core       *service.Core
	ready      func(context.Context) error
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := d.ReadHeaderTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	s := &Server{
		logger: logger,
		core:   d.Core,
		ready:  d.Ready,
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: timeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		// Device routes, called by the bridge on behalf of a controller.
		r.Route("/devices", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Route("/{controllerId}", func(r chi.Router) {
				r.Post("/heartbeat", s.handleHeartbeat)
				r.Post("/status", s.handleStatus)
				r.Post("/access-attempt", s.handleAccessAttempt)
				r.Post("/commands", s.handleDeviceCreateCommand)
				r.Post("/commands/pull", s.handlePull)
				r.Post("/commands/{commandId}/ack", s.handleAck)
			})
		})

		r.Route("/doors", func(r chi.Router) {
			r.Get("/", s.handleListDoors)
			r.Route("/{controllerId}", func(r chi.Router) {
				r.Get("/commands", s.handleCommandHistory)
				r.Post("/commands", s.handleAdminCreateCommand)
				r.Get("/access-logs", s.handleAccessLogs)
			})
		})

		r.Get("/rooms", s.handleListRooms)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Route("/{userId}", func(r chi.Router) {
				r.Post("/credentials", s.handleIssueCredential)
				r.Put("/permissions/{roomId}", s.handleGrantPermission)
				r.Delete("/permissions/{roomId}", s.handleRevokePermission)
			})
		})
		r.Post("/credentials/{credentialId}/deactivate", s.handleDeactivateCredential)
	})

	return r
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
