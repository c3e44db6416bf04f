package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	dbpkg "github.com/BrandonDHaskell/rollcall/internal/db"
)

type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker) *SessionStore {
	return &SessionStore{db: db, writer: writer}
}

func (s *SessionStore) OpenSession(ctx context.Context, sess types.Session) error {
	if sess.OpenedAt.IsZero() {
		sess.OpenedAt = time.Now().UTC()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions(
  session_id, run_id, owner_id, owner_name, owner_token,
  course_name, course_code, opened_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			sess.ID, sess.RunID, sess.OwnerID, sess.OwnerName, sess.OwnerToken,
			sess.CourseName, sess.CourseCode, sess.OpenedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("OpenSession insert: %w", err)
		}
		return nil
	})
}

// CloseSession stamps the close time.  A second close keeps the first time.
func (s *SessionStore) CloseSession(ctx context.Context, sessionID string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE sessions SET closed_at_ms = COALESCE(closed_at_ms, ?) WHERE session_id = ?;
`, at.UTC().UnixMilli(), sessionID)
		if err != nil {
			return fmt.Errorf("CloseSession update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("CloseSession rows: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (types.Session, error) {
	var (
		sess     types.Session
		openedMs int64
		closedMs sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT session_id, run_id, owner_id, owner_name, owner_token,
       course_name, course_code, opened_at_ms, closed_at_ms
FROM sessions WHERE session_id = ?;
`, sessionID).Scan(
		&sess.ID, &sess.RunID, &sess.OwnerID, &sess.OwnerName, &sess.OwnerToken,
		&sess.CourseName, &sess.CourseCode, &openedMs, &closedMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Session{}, store.ErrNotFound
	}
	if err != nil {
		return types.Session{}, fmt.Errorf("GetSession: %w", err)
	}

	sess.OpenedAt = time.UnixMilli(openedMs).UTC()
	sess.Status = types.SessionActive
	if closedMs.Valid {
		t := time.UnixMilli(closedMs.Int64).UTC()
		sess.ClosedAt = &t
		sess.Status = types.SessionClosed
	}
	return sess, nil
}
