package types_test

import (
	"math"
	"testing"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

func TestDescriptorDistance(t *testing.T) {
	a := types.Descriptor{0, 0, 0}
	b := types.Descriptor{3, 4, 0}

	if got := a.Distance(b); got != 5 {
		t.Errorf("expected distance 5, got %v", got)
	}
	if got := b.Distance(b); got != 0 {
		t.Errorf("expected distance 0 to self, got %v", got)
	}
}

func TestDescriptorDistance_LengthMismatchNeverMatches(t *testing.T) {
	a := types.Descriptor{1, 2}
	b := types.Descriptor{1, 2, 3}

	if got := a.Distance(b); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %v", got)
	}
	if got := (types.Descriptor{}).Distance(types.Descriptor{}); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf for empty descriptors, got %v", got)
	}
}

func TestIdentityVariants(t *testing.T) {
	ids := []types.Identity{
		types.Attendee{Profile: types.Profile{ID: "att-000001", Token: "1001"}},
		types.Owner{Profile: types.Profile{ID: "own-000001", Token: "9001"}, CourseCode: "CS101"},
	}

	var attendees, owners int
	for _, id := range ids {
		switch v := id.(type) {
		case types.Attendee:
			attendees++
			if v.Role() != types.RoleAttendee {
				t.Errorf("attendee role = %q", v.Role())
			}
		case types.Owner:
			owners++
			if v.Base().Token != "9001" {
				t.Errorf("owner token = %q", v.Base().Token)
			}
		}
	}
	if attendees != 1 || owners != 1 {
		t.Errorf("expected one of each variant, got attendees=%d owners=%d", attendees, owners)
	}
}

func TestDescriptorValid(t *testing.T) {
	if !make(types.Descriptor, types.DescriptorLen).Valid() {
		t.Error("full-length descriptor should be valid")
	}
	if (types.Descriptor{}).Valid() || (types.Descriptor{1, 2, 3}).Valid() {
		t.Error("short descriptors must be invalid")
	}
}
