package types

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// Session is one lecture activation opened by an owner tap.  RunID groups the
// sessions opened by a single run of the intake loop.
type Session struct {
	ID         string
	RunID      string
	OwnerID    string
	OwnerName  string
	OwnerToken string
	CourseName string
	CourseCode string
	OpenedAt   time.Time
	ClosedAt   *time.Time
	Status     SessionStatus
}

// PendingCheckIn is an attendee tap waiting for face verification.
type PendingCheckIn struct {
	IdentityID string
	Name       string
	Token      string
	TapTime    time.Time
}
