package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// NewAttendee and NewOwner are enrollment inputs.  The store assigns the id
// from its per-role enrollment sequence.
type NewAttendee struct {
	Name       string
	Token      string
	Templates  []types.Descriptor
	EnrolledAt time.Time
}

// ErrInvalidTemplates is returned by RegisterAttendee for a template set that
// is too small or holds a descriptor of the wrong dimension.
var ErrInvalidTemplates = errors.New("invalid face templates")

// ValidateTemplates checks a template set before it is stored.
func ValidateTemplates(ts []types.Descriptor) error {
	if len(ts) < types.MinTemplates {
		return fmt.Errorf("%w: %d templates, need at least %d", ErrInvalidTemplates, len(ts), types.MinTemplates)
	}
	for i, d := range ts {
		if !d.Valid() {
			return fmt.Errorf("%w: template %d has %d dimensions, want %d", ErrInvalidTemplates, i, len(d), types.DescriptorLen)
		}
	}
	return nil
}

type NewOwner struct {
	Name       string
	Token      string
	CourseName string
	CourseCode string
	EnrolledAt time.Time
}

// IdentityStore holds enrollment records.  Implementations must reject a
// token that is already bound to any identity with ErrDuplicateToken.
type IdentityStore interface {
	RegisterAttendee(ctx context.Context, a NewAttendee) (types.Attendee, error)
	RegisterOwner(ctx context.Context, o NewOwner) (types.Owner, error)

	// LookupByToken returns (nil, nil) for an unregistered token.
	LookupByToken(ctx context.Context, token string) (types.Identity, error)

	ListAttendees(ctx context.Context) ([]types.Attendee, error)
	ListOwners(ctx context.Context) ([]types.Owner, error)
}
