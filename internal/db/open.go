package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Config struct {
	Dialect Dialect // "sqlite" | "postgres"
	Path    string  // sqlite file, e.g. "./data/portcullis.db"
	DSN     string  // postgres connection string
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = SQLite
	}
	if !cfg.Dialect.Valid() {
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Dialect {
	case Postgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		db, err = sql.Open(cfg.Dialect.DriverName(), cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(time.Hour)
	default:
		if cfg.Path == "" {
			cfg.Path = "./data/portcullis.db"
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		db, err = sql.Open(cfg.Dialect.DriverName(), SQLiteDSN(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		// Single connection: the Worker is the only writer and readers queue
		// behind it.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db, cfg.Dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// SQLiteDSN builds a modernc.org/sqlite DSN with per-connection PRAGMAs.
func SQLiteDSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)
}
