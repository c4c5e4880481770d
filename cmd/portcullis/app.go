package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/config"
	"github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/logging"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/events"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/sqlstore"
)

// app holds what every subcommand shares. close releases it in reverse
// order of acquisition.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sql.DB
	dialect db.Dialect
	core    *service.Core

	closers []func()
}

func loadApp(configPath, component string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging, component)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, dialect: db.Dialect(cfg.Database.Driver)}
	a.onClose(func() { _ = logger.Sync() })
	return a, nil
}

func (a *app) onClose(fn func()) { a.closers = append(a.closers, fn) }

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// openDB opens and migrates the configured database.
func (a *app) openDB(ctx context.Context) error {
	conn, err := db.Open(ctx, db.Config{
		Dialect: a.dialect,
		Path:    a.cfg.Database.Path,
		DSN:     a.cfg.Database.DSN,
	})
	if err != nil {
		return err
	}
	a.db = conn
	a.onClose(func() { _ = conn.Close() })
	a.logger.Info("database ready",
		zap.String("driver", string(a.dialect)),
		zap.String("path", a.cfg.Database.Path))
	return nil
}

// buildCore wires the services over SQL stores. Events go to Redis when an
// address is configured.
func (a *app) buildCore(ctx context.Context) error {
	if a.db == nil {
		if err := a.openDB(ctx); err != nil {
			return err
		}
	}

	writer := db.NewRunner(a.db, a.dialect)
	a.onClose(writer.Close)
	conn := sqlstore.Conn{DB: a.db, Writer: writer, Dialect: a.dialect}

	var publisher events.Publisher = events.Noop{}
	if a.cfg.Events.RedisAddr != "" {
		rc := events.RedisConfig{
			Addr:     a.cfg.Events.RedisAddr,
			Password: a.cfg.Events.RedisPassword,
			DB:       a.cfg.Events.RedisDB,
			Stream:   a.cfg.Events.Stream,
			MaxLen:   a.cfg.Events.MaxLen,
		}
		client, err := events.DialRedis(ctx, rc)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.onClose(func() { _ = client.Close() })
		rp := events.NewRedisPublisher(client, rc, a.logger.Named("events"))
		// Registered after the client, so queued events flush before it closes.
		a.onClose(rp.Close)
		publisher = rp
		a.logger.Info("publishing events to redis", zap.String("addr", rc.Addr), zap.String("stream", rc.Stream))
	}

	a.core = service.NewCore(service.Stores{
		Controllers: sqlstore.NewControllerStore(conn),
		Rooms:       sqlstore.NewRoomStore(conn),
		Credentials: sqlstore.NewCredentialStore(conn),
		AccessLogs:  sqlstore.NewAccessLogStore(conn),
		Commands:    sqlstore.NewCommandStore(conn),
	}, service.Config{
		Commands: service.CommandConfig{
			UnlockTTL:   a.cfg.Commands.UnlockTTL,
			PullDefault: a.cfg.Commands.PullLimit,
		},
		Dashboard: service.DashboardConfig{
			OnlineWindow: a.cfg.Dashboard.OnlineWindow,
		},
	},
		service.WithPublisher(publisher),
		service.WithLogger(a.logger.Named("core")),
	)
	return nil
}

func (a *app) seedDev(ctx context.Context, registerController bool) error {
	if err := db.SeedDev(ctx, a.db, a.dialect, db.SeedDevOptions{RegisterController: registerController}); err != nil {
		return err
	}
	a.logger.Info("dev fixture seeded",
		zap.String("room_id", db.DevRoomID),
		zap.String("admin_tag", db.DevAdminTag),
		zap.Bool("controller", registerController))
	return nil
}
