package service

import (
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
)

var (
	ErrTokenAlreadyRegistered = fmt.Errorf("token already registered: %w", store.ErrDuplicateToken)

	// ErrInsufficientSamples means fewer face samples than the quorum were
	// captured.  Nothing is stored.
	ErrInsufficientSamples = errors.New("insufficient face samples")

	ErrInvalidEnrollment = errors.New("invalid enrollment request")

	// ErrTemplatesUnavailable means the stored templates could not be read
	// within the verification window.  No record is written.
	ErrTemplatesUnavailable = errors.New("face templates unavailable")
)

// LocalWriteError is returned when an attendance record could not be written
// to the local store.  That record is lost for this session; the batch
// carries on with the next one.
type LocalWriteError struct {
	IdentityID string
	SessionID  string
	Err        error
}

func (e *LocalWriteError) Error() string {
	return fmt.Sprintf("local write for %s in %s: %v", e.IdentityID, e.SessionID, e.Err)
}

func (e *LocalWriteError) Unwrap() error { return e.Err }
