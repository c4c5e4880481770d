// Package grpcapi serves the standard gRPC health protocol for the process.
package grpcapi

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// BridgeService is the health service name reflecting MQTT connectivity.
const BridgeService = "portcullis.bridge"

// Check reports on one dependency. Service "" is the overall status.
type Check struct {
	Service string
	Probe   func(context.Context) error
}

type Server struct {
	listener net.Listener
	grpc     *grpc.Server
	health   *health.Server
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	checks []Check
	stop   chan struct{}
}

// New listens on addr. Statuses start NOT_SERVING until the first refresh.
func New(addr string, interval time.Duration, logger *zap.Logger, checks ...Check) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return NewWithListener(lis, interval, logger, checks...), nil
}

func NewWithListener(lis net.Listener, interval time.Duration, logger *zap.Logger, checks ...Check) *Server {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{
		listener: lis,
		grpc:     gs,
		health:   hs,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	for _, c := range checks {
		s.AddCheck(c)
	}
	return s
}

// AddCheck registers a probe; used when the bridge comes up after the
// server was built.
func (s *Server) AddCheck(c Check) {
	s.mu.Lock()
	s.checks = append(s.checks, c)
	s.mu.Unlock()
	s.health.SetServingStatus(c.Service, healthpb.HealthCheckResponse_NOT_SERVING)
}

func (s *Server) Addr() string { return s.listener.Addr().String() }

// Refresh runs every probe once and publishes the results.
func (s *Server) Refresh(ctx context.Context) {
	s.mu.Lock()
	checks := append([]Check(nil), s.checks...)
	s.mu.Unlock()

	for _, c := range checks {
		status := healthpb.HealthCheckResponse_SERVING
		if err := c.Probe(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("health probe failed", zap.String("service", c.Service), zap.Error(err))
		}
		s.health.SetServingStatus(c.Service, status)
	}
}

// Serve refreshes probes on the interval and blocks serving gRPC until Stop.
func (s *Server) Serve() error {
	go s.refreshLoop()
	s.logger.Info("grpc health listening", zap.String("addr", s.Addr()))
	return s.grpc.Serve(s.listener)
}

func (s *Server) refreshLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		s.Refresh(ctx)
		cancel()
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	select {
	case <-s.stop:
		return
	default:
		close(s.stop)
	}
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
