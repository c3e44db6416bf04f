package types

import "time"

type Status string

const (
	// StatusPresent means a live face matched an enrolled template.
	StatusPresent Status = "present"
	// StatusPartial means the card was tapped but no face matched before the
	// verification window closed.
	StatusPartial Status = "partial"
)

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusPartial
}

// DateLayout and ClockLayout are the formats used for the human readable
// date/time columns in both stores.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

// AttendanceRecord is written once per (identity, session) and never updated.
type AttendanceRecord struct {
	IdentityID   string
	Name         string
	Token        string
	SessionID    string
	Date         string
	TapTime      time.Time
	VerifiedTime *time.Time
	Status       Status
}

type IntakeOutcome int

const (
	OutcomeNewCheckIn IntakeOutcome = iota
	OutcomeDuplicateInSession
	OutcomeDuplicateConfirmed
	OutcomeUnregistered
)

func (o IntakeOutcome) String() string {
	switch o {
	case OutcomeNewCheckIn:
		return "new_check_in"
	case OutcomeDuplicateInSession:
		return "duplicate_in_session"
	case OutcomeDuplicateConfirmed:
		return "duplicate_confirmed"
	case OutcomeUnregistered:
		return "unregistered"
	default:
		return "unknown"
	}
}
