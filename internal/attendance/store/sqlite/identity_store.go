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
	"github.com/BrandonDHaskell/rollcall/internal/idgen"
)

type IdentityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIdentityStore(db *sql.DB, writer *dbpkg.Worker) *IdentityStore {
	return &IdentityStore{db: db, writer: writer}
}

func (s *IdentityStore) RegisterAttendee(ctx context.Context, a store.NewAttendee) (types.Attendee, error) {
	if err := store.ValidateTemplates(a.Templates); err != nil {
		return types.Attendee{}, fmt.Errorf("RegisterAttendee: %w", err)
	}
	if a.EnrolledAt.IsZero() {
		a.EnrolledAt = time.Now().UTC()
	}
	blob := encodeTemplates(a.Templates)

	var att types.Attendee
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := claimToken(ctx, tx, a.Token); err != nil {
			return err
		}

		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM attendees;`).Scan(&seq); err != nil {
			return fmt.Errorf("RegisterAttendee next seq: %w", err)
		}
		id := idgen.IdentityID(types.RoleAttendee, seq)

		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendees(id, seq, name, token, templates, template_count, enrolled_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, id, seq, a.Name, a.Token, blob, len(a.Templates), a.EnrolledAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("RegisterAttendee insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tokens(token, role, identity_id) VALUES (?, ?, ?);
`, a.Token, string(types.RoleAttendee), id); err != nil {
			return fmt.Errorf("RegisterAttendee bind token: %w", err)
		}

		att = types.Attendee{
			Profile: types.Profile{
				ID:         id,
				Name:       a.Name,
				Token:      a.Token,
				EnrolledAt: time.UnixMilli(a.EnrolledAt.UTC().UnixMilli()).UTC(),
			},
			Templates: a.Templates,
		}
		return nil
	})
	if err != nil {
		return types.Attendee{}, err
	}
	return att, nil
}

func (s *IdentityStore) RegisterOwner(ctx context.Context, o store.NewOwner) (types.Owner, error) {
	if o.EnrolledAt.IsZero() {
		o.EnrolledAt = time.Now().UTC()
	}

	var own types.Owner
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := claimToken(ctx, tx, o.Token); err != nil {
			return err
		}

		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM owners;`).Scan(&seq); err != nil {
			return fmt.Errorf("RegisterOwner next seq: %w", err)
		}
		id := idgen.IdentityID(types.RoleOwner, seq)

		if _, err := tx.ExecContext(ctx, `
INSERT INTO owners(id, seq, name, token, course_name, course_code, enrolled_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, id, seq, o.Name, o.Token, o.CourseName, o.CourseCode, o.EnrolledAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("RegisterOwner insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tokens(token, role, identity_id) VALUES (?, ?, ?);
`, o.Token, string(types.RoleOwner), id); err != nil {
			return fmt.Errorf("RegisterOwner bind token: %w", err)
		}

		own = types.Owner{
			Profile: types.Profile{
				ID:         id,
				Name:       o.Name,
				Token:      o.Token,
				EnrolledAt: time.UnixMilli(o.EnrolledAt.UTC().UnixMilli()).UTC(),
			},
			CourseName: o.CourseName,
			CourseCode: o.CourseCode,
		}
		return nil
	})
	if err != nil {
		return types.Owner{}, err
	}
	return own, nil
}

// claimToken fails with store.ErrDuplicateToken if the card is bound to any
// identity.  Runs on the writer goroutine, so check-then-insert is safe.
func claimToken(ctx context.Context, tx *sql.Tx, token string) error {
	var existing string
	err := tx.QueryRowContext(ctx, `SELECT identity_id FROM tokens WHERE token = ?;`, token).Scan(&existing)
	switch {
	case err == nil:
		return store.ErrDuplicateToken
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("token lookup: %w", err)
	}
}

func (s *IdentityStore) LookupByToken(ctx context.Context, token string) (types.Identity, error) {
	var role, id string
	err := s.db.QueryRowContext(ctx, `
SELECT role, identity_id FROM tokens WHERE token = ?;
`, token).Scan(&role, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LookupByToken: %w", err)
	}

	switch types.Role(role) {
	case types.RoleAttendee:
		row := s.db.QueryRowContext(ctx, `
SELECT id, name, token, templates, enrolled_at_ms FROM attendees WHERE id = ?;
`, id)
		a, err := scanAttendee(row)
		if err != nil {
			return nil, fmt.Errorf("LookupByToken attendee %s: %w", id, err)
		}
		return a, nil
	case types.RoleOwner:
		row := s.db.QueryRowContext(ctx, `
SELECT id, name, token, course_name, course_code, enrolled_at_ms FROM owners WHERE id = ?;
`, id)
		o, err := scanOwner(row)
		if err != nil {
			return nil, fmt.Errorf("LookupByToken owner %s: %w", id, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("LookupByToken: unknown role %q", role)
	}
}

func (s *IdentityStore) ListAttendees(ctx context.Context) ([]types.Attendee, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, token, templates, enrolled_at_ms FROM attendees ORDER BY seq;
`)
	if err != nil {
		return nil, fmt.Errorf("ListAttendees: %w", err)
	}
	defer rows.Close()

	var out []types.Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAttendees scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *IdentityStore) ListOwners(ctx context.Context) ([]types.Owner, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, token, course_name, course_code, enrolled_at_ms FROM owners ORDER BY seq;
`)
	if err != nil {
		return nil, fmt.Errorf("ListOwners: %w", err)
	}
	defer rows.Close()

	var out []types.Owner
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("ListOwners scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttendee(r scanner) (types.Attendee, error) {
	var (
		a    types.Attendee
		blob []byte
		ms   int64
	)
	if err := r.Scan(&a.ID, &a.Name, &a.Token, &blob, &ms); err != nil {
		return types.Attendee{}, err
	}
	templates, err := decodeTemplates(blob)
	if err != nil {
		return types.Attendee{}, err
	}
	a.Templates = templates
	a.EnrolledAt = time.UnixMilli(ms).UTC()
	return a, nil
}

func scanOwner(r scanner) (types.Owner, error) {
	var (
		o  types.Owner
		ms int64
	)
	if err := r.Scan(&o.ID, &o.Name, &o.Token, &o.CourseName, &o.CourseCode, &ms); err != nil {
		return types.Owner{}, err
	}
	o.EnrolledAt = time.UnixMilli(ms).UTC()
	return o, nil
}
