package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// Mirror records every remote write it receives.  When Err is set all writes
// fail with it and nothing is recorded, like an unreachable server.
type Mirror struct {
	mu       sync.Mutex
	sessions map[string]types.Session
	records  []types.AttendanceRecord
	err      error
	calls    int
}

func NewMirror() *Mirror {
	return &Mirror{sessions: make(map[string]types.Session)}
}

func (m *Mirror) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) PutSession(_ context.Context, s types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *Mirror) CloseSession(_ context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	s := m.sessions[sessionID]
	s.ID = sessionID
	at = at.UTC()
	s.ClosedAt = &at
	s.Status = types.SessionClosed
	m.sessions[sessionID] = s
	return nil
}

func (m *Mirror) PutAttendance(_ context.Context, rec types.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	// Upsert on (session, token), matching the remote document key.
	for i, r := range m.records {
		if r.SessionID == rec.SessionID && r.Token == rec.Token {
			m.records[i] = rec
			return nil
		}
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of all mirrored attendance.  Test-only helper.
func (m *Mirror) Records() []types.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.AttendanceRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Session returns the mirrored session document, if any.
func (m *Mirror) Session(id string) (types.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Calls counts attempted writes, including failed ones.
func (m *Mirror) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
