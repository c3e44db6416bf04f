package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	sqlitestore "github.com/BrandonDHaskell/rollcall/internal/attendance/store/sqlite"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool.
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		strings.ReplaceAll(t.Name(), "/", "_"),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	if err := db.Migrate(conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// face returns a descriptor filled with v.
func face(v float64) types.Descriptor {
	d := make(types.Descriptor, types.DescriptorLen)
	for i := range d {
		d[i] = v
	}
	return d
}

// seedOwner enrolls an owner so sessions can reference it.
func seedOwner(t *testing.T, conn *sql.DB, w *db.Worker, token string) types.Owner {
	t.Helper()

	ids := sqlitestore.NewIdentityStore(conn, w)
	o, err := ids.RegisterOwner(context.Background(), store.NewOwner{
		Name:       "Dr. Reyes",
		Token:      token,
		CourseName: "Intro to Systems",
		CourseCode: "CS101",
		EnrolledAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seedOwner: %v", err)
	}
	return o
}
