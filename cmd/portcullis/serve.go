package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Portcullis/server/internal/bridge"
	"github.com/BrandonDHaskell/Portcullis/server/internal/grpcapi"
	"github.com/BrandonDHaskell/Portcullis/server/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var withBridge bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health and optionally the MQTT bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath, "portcullis-server")
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("mqtt") {
				a.cfg.MQTT.Enabled = withBridge
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().BoolVar(&withBridge, "mqtt", false, "run the MQTT bridge in this process")
	return cmd
}

func runServe(parent context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.buildCore(ctx); err != nil {
		return err
	}
	if a.cfg.Env == "dev" {
		if err := a.seedDev(ctx, false); err != nil {
			return err
		}
	}

	ready := func(ctx context.Context) error { return a.db.PingContext(ctx) }

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            a.logger.Named("http"),
		Addr:              a.cfg.HTTP.Addr,
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
		Core:              a.core,
		Ready:             ready,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http listening", zap.String("addr", a.cfg.HTTP.Addr), zap.String("env", a.cfg.Env))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var hs *grpcapi.Server
	if a.cfg.GRPC.Enabled {
		var err error
		hs, err = grpcapi.New(a.cfg.GRPC.Addr, a.cfg.GRPC.CheckInterval, a.logger.Named("grpc"),
			grpcapi.Check{Service: "", Probe: ready})
		if err != nil {
			return err
		}
		g.Go(func() error {
			a.logger.Info("grpc health listening", zap.String("addr", hs.Addr()))
			return hs.Serve()
		})
	}

	if a.cfg.MQTT.Enabled {
		client, b, err := startBridge(gctx, a, bridge.NewInProcess(a.core))
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		if hs != nil {
			hs.AddCheck(grpcapi.Check{Service: grpcapi.BridgeService, Probe: client.HealthCheck})
		}
		g.Go(func() error {
			<-gctx.Done()
			b.Stop()
			return client.Close()
		})
	}

	// Ordered shutdown: stop accepting HTTP, then drop health.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if hs != nil {
			hs.Stop()
		}
		return err
	})

	err := g.Wait()
	a.logger.Info("shutdown complete")
	return err
}
