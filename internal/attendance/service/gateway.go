package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/metrics"
)

// Gateway writes to the local store, which is authoritative, and then to
// the remote mirror.  Mirror failures are logged and dropped.
type Gateway struct {
	log      store.AttendanceLog
	sessions store.SessionStore
	mirror   store.Mirror
	logger   *slog.Logger
}

func NewGateway(log store.AttendanceLog, sessions store.SessionStore, mirror store.Mirror, logger *slog.Logger) *Gateway {
	if mirror == nil {
		mirror = store.NoopMirror{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{log: log, sessions: sessions, mirror: mirror, logger: logger}
}

// Commit persists one final record.  A local failure is returned as a
// *LocalWriteError and the mirror is not attempted.
func (g *Gateway) Commit(ctx context.Context, rec types.AttendanceRecord) error {
	if err := g.log.AppendRecord(ctx, rec); err != nil {
		metrics.LocalWriteFailures.Inc()
		return &LocalWriteError{IdentityID: rec.IdentityID, SessionID: rec.SessionID, Err: err}
	}

	if err := g.mirror.PutAttendance(ctx, rec); err != nil {
		g.mirrorFailed(ctx, "put_attendance", rec.SessionID, err, "identity_id", rec.IdentityID)
	}
	return nil
}

// OpenSession records a new session locally and in the mirror.  Only the
// local error is returned.
func (g *Gateway) OpenSession(ctx context.Context, s types.Session) error {
	var localErr error
	if err := g.sessions.OpenSession(ctx, s); err != nil {
		localErr = err
	}
	if err := g.mirror.PutSession(ctx, s); err != nil {
		g.mirrorFailed(ctx, "put_session", s.ID, err)
	}
	return localErr
}

// CloseSession marks a session closed in both stores.  Only the local error
// is returned.
func (g *Gateway) CloseSession(ctx context.Context, sessionID string, at time.Time) error {
	var localErr error
	if err := g.sessions.CloseSession(ctx, sessionID, at); err != nil {
		localErr = err
	}
	if err := g.mirror.CloseSession(ctx, sessionID, at); err != nil {
		g.mirrorFailed(ctx, "close_session", sessionID, err)
	}
	return localErr
}

func (g *Gateway) mirrorFailed(ctx context.Context, op, sessionID string, err error, attrs ...any) {
	metrics.TrackMirrorFailure(op)
	args := append([]any{"op", op, "session_id", sessionID, "err", err}, attrs...)
	g.logger.WarnContext(ctx, "mirror write failed", args...)
}
