package types

import "time"

type Role string

const (
	RoleAttendee Role = "attendee"
	RoleOwner    Role = "owner"
)

// Profile holds the fields every enrolled identity carries regardless of role.
type Profile struct {
	ID         string
	Name       string
	Token      string
	EnrolledAt time.Time
}

// Identity is either an Attendee or an Owner.  Callers dispatch with a type
// switch; no other implementations exist.
type Identity interface {
	Base() Profile
	Role() Role
	isIdentity()
}

// Attendee is a person whose check-ins are verified against enrolled face
// templates.  Templates is never shorter than MinTemplates once stored.
type Attendee struct {
	Profile
	Templates []Descriptor
}

func (a Attendee) Base() Profile { return a.Profile }
func (a Attendee) Role() Role    { return RoleAttendee }
func (Attendee) isIdentity()     {}

// Owner is a lecturer whose tap opens (or rolls over) a session.
type Owner struct {
	Profile
	CourseName string
	CourseCode string
}

func (o Owner) Base() Profile { return o.Profile }
func (o Owner) Role() Role    { return RoleOwner }
func (Owner) isIdentity()     {}

// MinTemplates is the smallest number of face templates an attendee may be
// stored with.
const MinTemplates = 2
