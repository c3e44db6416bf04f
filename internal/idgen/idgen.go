// Package idgen derives identity, session and run identifiers.
package idgen

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// SessionAlphabet omits characters that are easy to misread on a printout.
var SessionAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// SessionSuffixLength is the number of random characters appended to a
// session id.
var SessionSuffixLength = 6

const sessionTimeLayout = "20060102_150405"

// IdentityID returns the stable id for the seq-th enrollment of the given
// role, e.g. "att-000042".  Ids never depend on the display name.
func IdentityID(role types.Role, seq int64) string {
	prefix := "att"
	if role == types.RoleOwner {
		prefix = "own"
	}
	return fmt.Sprintf("%s-%06d", prefix, seq)
}

// SessionID returns "<course>_<YYYYMMDD_HHMMSS>_<random>".  The random suffix
// keeps two taps within the same second apart.
func SessionID(courseCode string, at time.Time) (string, error) {
	suffix, err := nanoid.Generate(SessionAlphabet, SessionSuffixLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", sanitizeCode(courseCode), at.UTC().Format(sessionTimeLayout), suffix), nil
}

// RunID returns a time-sortable id for one run of the intake loop.
func RunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// sanitizeCode keeps the course code usable as a document key.
func sanitizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "session"
	}
	var b strings.Builder
	for _, r := range code {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
