package service

import (
	"context"
	"errors"
	"strings"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

type IdentityRegistry struct {
	store store.IdentityStore
}

func NewIdentityRegistry(st store.IdentityStore) *IdentityRegistry {
	return &IdentityRegistry{store: st}
}

// Resolve returns the identity bound to token, or nil if none is.
func (r *IdentityRegistry) Resolve(ctx context.Context, token string) (types.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return r.store.LookupByToken(ctx, token)
}

func (r *IdentityRegistry) IsRegistered(ctx context.Context, token string) (bool, error) {
	id, err := r.Resolve(ctx, token)
	if err != nil {
		return false, err
	}
	return id != nil, nil
}

func (r *IdentityRegistry) registerAttendee(ctx context.Context, a store.NewAttendee) (types.Attendee, error) {
	att, err := r.store.RegisterAttendee(ctx, a)
	if errors.Is(err, store.ErrDuplicateToken) {
		return types.Attendee{}, ErrTokenAlreadyRegistered
	}
	return att, err
}

func (r *IdentityRegistry) registerOwner(ctx context.Context, o store.NewOwner) (types.Owner, error) {
	own, err := r.store.RegisterOwner(ctx, o)
	if errors.Is(err, store.ErrDuplicateToken) {
		return types.Owner{}, ErrTokenAlreadyRegistered
	}
	return own, err
}

func (r *IdentityRegistry) ListAttendees(ctx context.Context) ([]types.Attendee, error) {
	return r.store.ListAttendees(ctx)
}

func (r *IdentityRegistry) ListOwners(ctx context.Context) ([]types.Owner, error) {
	return r.store.ListOwners(ctx)
}
