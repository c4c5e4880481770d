package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/sqlstore"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production. The connection is closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// The shared-cache URI keeps the database alive for the lifetime of the
	// pool even if sql.DB recycles the underlying conn.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}
	if err := db.Migrate(context.Background(), conn, db.SQLite); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestConn wraps conn with a Worker that is closed when the test finishes.
func newTestConn(t *testing.T, conn *sql.DB) sqlstore.Conn {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return sqlstore.Conn{DB: conn, Writer: w, Dialect: db.SQLite}
}

// seedFixture loads the dev fixture: one block, rooms Lab 101 and Lab 102,
// an admin with a permanent permission on Lab 101 and a guest with none.
func seedFixture(t *testing.T, conn *sql.DB, registerController bool) {
	t.Helper()
	err := db.SeedDev(context.Background(), conn, db.SQLite, db.SeedDevOptions{
		RegisterController: registerController,
	})
	if err != nil {
		t.Fatalf("seedFixture: %v", err)
	}
}

func ptr[T any](v T) *T { return &v }

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var (
	_ store.ControllerStore = (*sqlstore.ControllerStore)(nil)
	_ store.RoomStore       = (*sqlstore.RoomStore)(nil)
	_ store.CredentialStore = (*sqlstore.CredentialStore)(nil)
	_ store.AccessLogStore  = (*sqlstore.AccessLogStore)(nil)
	_ store.CommandStore    = (*sqlstore.CommandStore)(nil)
)
