package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func NewOutputFormatter(format string, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: format, Writer: w}
}

// CLIResponse is the JSON envelope for command output.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Print writes data as JSON, or text otherwise.
func (f *OutputFormatter) Print(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

type identityRow struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Token      string `json:"token"`
	CourseName string `json:"course_name,omitempty"`
	CourseCode string `json:"course_code,omitempty"`
	Templates  int    `json:"templates,omitempty"`
	EnrolledAt string `json:"enrolled_at"`
}

func attendeeRow(a types.Attendee) identityRow {
	return identityRow{
		ID: a.ID, Role: string(types.RoleAttendee), Name: a.Name, Token: a.Token,
		Templates: len(a.Templates), EnrolledAt: a.EnrolledAt.UTC().Format(time.RFC3339),
	}
}

func ownerRow(o types.Owner) identityRow {
	return identityRow{
		ID: o.ID, Role: string(types.RoleOwner), Name: o.Name, Token: o.Token,
		CourseName: o.CourseName, CourseCode: o.CourseCode, EnrolledAt: o.EnrolledAt.UTC().Format(time.RFC3339),
	}
}

func (r identityRow) String() string {
	if r.Role == string(types.RoleOwner) {
		return fmt.Sprintf("%-12s %-8s %-24s %-12s %s", r.ID, r.Role, r.Name, r.Token, r.CourseCode)
	}
	return fmt.Sprintf("%-12s %-8s %-24s %-12s %d templates", r.ID, r.Role, r.Name, r.Token, r.Templates)
}
