package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// AttendanceLog is an in-memory append-only log.  Err, when set, is returned
// from every AppendRecord so tests can simulate a failing local store.
type AttendanceLog struct {
	mu      sync.Mutex
	records []types.AttendanceRecord
	Err     error
}

func NewAttendanceLog() *AttendanceLog {
	return &AttendanceLog{}
}

func (l *AttendanceLog) AppendRecord(_ context.Context, rec types.AttendanceRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	for _, r := range l.records {
		if r.IdentityID == rec.IdentityID && r.SessionID == rec.SessionID {
			return fmt.Errorf("attendance for %s in %s already recorded", rec.IdentityID, rec.SessionID)
		}
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *AttendanceLog) ListBySession(_ context.Context, sessionID string) ([]types.AttendanceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []types.AttendanceRecord
	for _, r := range l.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *AttendanceLog) ListAll(_ context.Context) ([]types.AttendanceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.AttendanceRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

// SetErr changes the failure injected into AppendRecord.
func (l *AttendanceLog) SetErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Err = err
}
