package store

import (
	"context"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// AttendanceLog is the authoritative append-only record of final attendance.
type AttendanceLog interface {
	AppendRecord(ctx context.Context, rec types.AttendanceRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]types.AttendanceRecord, error)
	ListAll(ctx context.Context) ([]types.AttendanceRecord, error)
}
