package service

import (
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// RunState is the in-memory state of one intake run: the active session and
// the two staging sets.  It is owned by the intake loop and not safe for
// concurrent use.
type RunState struct {
	session *types.Session

	// fresh holds attendees tapped since the last rollover.
	fresh      map[string]types.PendingCheckIn
	freshOrder []string

	// confirmed holds attendees already taken through verification in this
	// run.  Entries keep their original tap.
	confirmed      map[string]types.PendingCheckIn
	confirmedOrder []string
}

func NewRunState() *RunState {
	s := &RunState{}
	s.Reset()
	return s
}

// Classify reports what a tap by identityID would be, without changing state.
func (s *RunState) Classify(identityID string) types.IntakeOutcome {
	if _, ok := s.confirmed[identityID]; ok {
		return types.OutcomeDuplicateConfirmed
	}
	if _, ok := s.fresh[identityID]; ok {
		return types.OutcomeDuplicateInSession
	}
	return types.OutcomeNewCheckIn
}

// Admit classifies the tap and stages it when it is new.
func (s *RunState) Admit(p types.PendingCheckIn) types.IntakeOutcome {
	outcome := s.Classify(p.IdentityID)
	if outcome == types.OutcomeNewCheckIn {
		s.fresh[p.IdentityID] = p
		s.freshOrder = append(s.freshOrder, p.IdentityID)
	}
	return outcome
}

// Rollover makes next the active session and promotes every fresh check-in
// into confirmed.  It returns the session that was active before and the
// batch to verify for next, in tap order: only the promoted check-ins, or
// the whole confirmed set when replayAll is set.
func (s *RunState) Rollover(next types.Session, replayAll bool) (*types.Session, []types.PendingCheckIn) {
	prev := s.session
	n := next
	s.session = &n

	var replay []types.PendingCheckIn
	if replayAll {
		for _, id := range s.confirmedOrder {
			replay = append(replay, s.confirmed[id])
		}
	}

	promoted := make([]types.PendingCheckIn, 0, len(s.freshOrder))
	for _, id := range s.freshOrder {
		p := s.fresh[id]
		promoted = append(promoted, p)
		s.confirmed[id] = p
		s.confirmedOrder = append(s.confirmedOrder, id)
	}
	s.fresh = make(map[string]types.PendingCheckIn)
	s.freshOrder = nil

	return prev, append(replay, promoted...)
}

// Reset drops the session and both staging sets.  A reset run is not
// resumable.
func (s *RunState) Reset() {
	s.session = nil
	s.fresh = make(map[string]types.PendingCheckIn)
	s.freshOrder = nil
	s.confirmed = make(map[string]types.PendingCheckIn)
	s.confirmedOrder = nil
}

// Session returns a copy of the active session, or nil before the first
// owner tap.
func (s *RunState) Session() *types.Session {
	if s.session == nil {
		return nil
	}
	c := *s.session
	return &c
}

func (s *RunState) Counts() (fresh, confirmed int) {
	return len(s.fresh), len(s.confirmed)
}
