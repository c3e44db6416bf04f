package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// Mirror is the remote document copy of sessions and attendance.  Writes are
// best-effort: callers log failures and carry on.
type Mirror interface {
	PutSession(ctx context.Context, s types.Session) error
	CloseSession(ctx context.Context, sessionID string, at time.Time) error
	PutAttendance(ctx context.Context, rec types.AttendanceRecord) error
}

// NoopMirror is used when no remote store is configured.
type NoopMirror struct{}

func (NoopMirror) PutSession(context.Context, types.Session) error             { return nil }
func (NoopMirror) CloseSession(context.Context, string, time.Time) error       { return nil }
func (NoopMirror) PutAttendance(context.Context, types.AttendanceRecord) error { return nil }
