package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
)

// MirrorReplayer re-pushes a session from the local store to the remote
// mirror.  It is how dropped mirror writes are recovered.
type MirrorReplayer struct {
	sessions store.SessionStore
	log      store.AttendanceLog
	mirror   store.Mirror
}

func NewMirrorReplayer(sessions store.SessionStore, log store.AttendanceLog, mirror store.Mirror) *MirrorReplayer {
	return &MirrorReplayer{sessions: sessions, log: log, mirror: mirror}
}

// Replay mirrors the session document and every attendance record of
// sessionID.  It keeps going past failures and returns how many records were
// mirrored together with all errors joined.
func (r *MirrorReplayer) Replay(ctx context.Context, sessionID string) (int, error) {
	sess, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	recs, err := r.log.ListBySession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("load attendance for %s: %w", sessionID, err)
	}

	var errs []error
	if err := r.mirror.PutSession(ctx, sess); err != nil {
		errs = append(errs, err)
	}

	var n int
	for _, rec := range recs {
		if err := r.mirror.PutAttendance(ctx, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
