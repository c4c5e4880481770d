package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Portcullis/server/internal/bridge"
	"github.com/BrandonDHaskell/Portcullis/server/internal/bridge/apiclient"
	"github.com/BrandonDHaskell/Portcullis/server/internal/bridge/mqtt"
	"github.com/BrandonDHaskell/Portcullis/server/internal/config"
	"github.com/BrandonDHaskell/Portcullis/server/internal/grpcapi"
)

func newBridgeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Run the MQTT bridge on its own, forwarding to the HTTP API or the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath, "portcullis-bridge")
			if err != nil {
				return err
			}
			defer a.close()
			return runBridge(cmd.Context(), a)
		},
	}
}

func runBridge(parent context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var core bridge.Core
	switch a.cfg.Bridge.Mode {
	case "inprocess":
		if err := a.buildCore(ctx); err != nil {
			return err
		}
		core = bridge.NewInProcess(a.core)
	default:
		core = apiclient.New(a.cfg.Bridge.APIURL, a.cfg.Bridge.Timeout, a.logger.Named("apiclient"))
		a.logger.Info("bridge forwarding to api", zap.String("url", a.cfg.Bridge.APIURL))
	}

	client, b, err := startBridge(ctx, a, core)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.GRPC.Enabled {
		hs, err := grpcapi.New(a.cfg.GRPC.Addr, a.cfg.GRPC.CheckInterval, a.logger.Named("grpc"),
			grpcapi.Check{Service: "", Probe: client.HealthCheck},
			grpcapi.Check{Service: grpcapi.BridgeService, Probe: client.HealthCheck},
		)
		if err != nil {
			b.Stop()
			_ = client.Close()
			return err
		}
		g.Go(func() error {
			a.logger.Info("grpc health listening", zap.String("addr", hs.Addr()))
			return hs.Serve()
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.Stop()
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		b.Stop()
		return client.Close()
	})

	a.logger.Info("bridge running", zap.String("broker", mqttConfig(a.cfg).BrokerURL()))
	return g.Wait()
}

// startBridge connects to the broker and subscribes the device topics.
func startBridge(ctx context.Context, a *app, core bridge.Core) (*mqtt.Client, *bridge.Bridge, error) {
	client, err := mqtt.Connect(mqttConfig(a.cfg), a.logger.Named("mqtt"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mqtt: %w", err)
	}

	b := bridge.New(core, client, bridge.Config{
		Topics: bridge.Topics{Prefix: a.cfg.MQTT.TopicPrefix},
		Poll: bridge.PollerConfig{
			Interval: a.cfg.MQTT.PollInterval,
			Batch:    a.cfg.MQTT.PullBatch,
		},
		HandlerTimeout: a.cfg.Bridge.Timeout,
	}, a.logger.Named("bridge"))

	if err := b.Start(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("start bridge: %w", err)
	}
	return client, b, nil
}

func mqttConfig(cfg *config.Config) mqtt.Config {
	return mqtt.Config{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		TLS:      cfg.MQTT.TLS,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		QoS:      byte(cfg.MQTT.QoS),
	}
}
