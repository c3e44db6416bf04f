package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

type SessionStore interface {
	OpenSession(ctx context.Context, s types.Session) error
	CloseSession(ctx context.Context, sessionID string, at time.Time) error
	GetSession(ctx context.Context, sessionID string) (types.Session, error)
}
