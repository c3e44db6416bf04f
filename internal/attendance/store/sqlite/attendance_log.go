package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	dbpkg "github.com/BrandonDHaskell/rollcall/internal/db"
)

type AttendanceLog struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAttendanceLog(db *sql.DB, writer *dbpkg.Worker) *AttendanceLog {
	return &AttendanceLog{db: db, writer: writer}
}

func (l *AttendanceLog) AppendRecord(ctx context.Context, rec types.AttendanceRecord) error {
	if !rec.Status.Valid() {
		return fmt.Errorf("AppendRecord: invalid status %q", rec.Status)
	}
	if rec.Date == "" {
		rec.Date = rec.TapTime.Format(types.DateLayout)
	}

	var verifiedMs any
	if rec.VerifiedTime != nil {
		verifiedMs = rec.VerifiedTime.UTC().UnixMilli()
	}

	return l.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendance_log(
  identity_id, name, token, date, session_id,
  tap_time_ms, verified_time_ms, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.IdentityID, rec.Name, rec.Token, rec.Date, rec.SessionID,
			rec.TapTime.UTC().UnixMilli(), verifiedMs, string(rec.Status),
		); err != nil {
			return fmt.Errorf("AppendRecord insert: %w", err)
		}
		return nil
	})
}

func (l *AttendanceLog) ListBySession(ctx context.Context, sessionID string) ([]types.AttendanceRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT identity_id, name, token, date, session_id, tap_time_ms, verified_time_ms, status
FROM attendance_log WHERE session_id = ? ORDER BY id;
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ListBySession: %w", err)
	}
	return collectRecords(rows)
}

func (l *AttendanceLog) ListAll(ctx context.Context) ([]types.AttendanceRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT identity_id, name, token, date, session_id, tap_time_ms, verified_time_ms, status
FROM attendance_log ORDER BY id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]types.AttendanceRecord, error) {
	defer rows.Close()

	var out []types.AttendanceRecord
	for rows.Next() {
		var (
			rec        types.AttendanceRecord
			tapMs      int64
			verifiedMs sql.NullInt64
			status     string
		)
		if err := rows.Scan(
			&rec.IdentityID, &rec.Name, &rec.Token, &rec.Date, &rec.SessionID,
			&tapMs, &verifiedMs, &status,
		); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.TapTime = time.UnixMilli(tapMs).UTC()
		if verifiedMs.Valid {
			t := time.UnixMilli(verifiedMs.Int64).UTC()
			rec.VerifiedTime = &t
		}
		rec.Status = types.Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
