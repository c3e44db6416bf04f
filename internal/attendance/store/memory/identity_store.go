package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/idgen"
)

// IdentityStore keeps enrollments in memory.  It is intended for tests and
// the sim run mode.
type IdentityStore struct {
	mu        sync.RWMutex
	byToken   map[string]types.Identity
	attendees []types.Attendee
	owners    []types.Owner
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{byToken: make(map[string]types.Identity)}
}

func (s *IdentityStore) RegisterAttendee(_ context.Context, a store.NewAttendee) (types.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := store.ValidateTemplates(a.Templates); err != nil {
		return types.Attendee{}, err
	}
	if _, ok := s.byToken[a.Token]; ok {
		return types.Attendee{}, store.ErrDuplicateToken
	}
	if a.EnrolledAt.IsZero() {
		a.EnrolledAt = time.Now().UTC()
	}

	templates := make([]types.Descriptor, len(a.Templates))
	for i, d := range a.Templates {
		templates[i] = d.Clone()
	}
	att := types.Attendee{
		Profile: types.Profile{
			ID:         idgen.IdentityID(types.RoleAttendee, int64(len(s.attendees)+1)),
			Name:       a.Name,
			Token:      a.Token,
			EnrolledAt: a.EnrolledAt,
		},
		Templates: templates,
	}
	s.attendees = append(s.attendees, att)
	s.byToken[a.Token] = att
	return att, nil
}

func (s *IdentityStore) RegisterOwner(_ context.Context, o store.NewOwner) (types.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byToken[o.Token]; ok {
		return types.Owner{}, store.ErrDuplicateToken
	}
	if o.EnrolledAt.IsZero() {
		o.EnrolledAt = time.Now().UTC()
	}

	own := types.Owner{
		Profile: types.Profile{
			ID:         idgen.IdentityID(types.RoleOwner, int64(len(s.owners)+1)),
			Name:       o.Name,
			Token:      o.Token,
			EnrolledAt: o.EnrolledAt,
		},
		CourseName: o.CourseName,
		CourseCode: o.CourseCode,
	}
	s.owners = append(s.owners, own)
	s.byToken[o.Token] = own
	return own, nil
}

func (s *IdentityStore) LookupByToken(_ context.Context, token string) (types.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, nil
	}
	return id, nil
}

func (s *IdentityStore) ListAttendees(_ context.Context) ([]types.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Attendee, len(s.attendees))
	copy(out, s.attendees)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *IdentityStore) ListOwners(_ context.Context) ([]types.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Owner, len(s.owners))
	copy(out, s.owners)
	return out, nil
}

// ReplaceTemplates swaps an attendee's templates in place.  Test-only helper
// for exercising the re-read of templates during verification.
func (s *IdentityStore) ReplaceTemplates(token string, templates []types.Descriptor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	if !ok {
		return false
	}
	att, ok := id.(types.Attendee)
	if !ok {
		return false
	}
	att.Templates = templates
	s.byToken[token] = att
	for i := range s.attendees {
		if s.attendees[i].ID == att.ID {
			s.attendees[i] = att
		}
	}
	return true
}
