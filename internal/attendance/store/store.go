package store

import "errors"

var (
	// ErrDuplicateToken means the card is already bound to an identity of
	// either role.
	ErrDuplicateToken = errors.New("token already bound to an identity")

	ErrNotFound = errors.New("not found")
)
