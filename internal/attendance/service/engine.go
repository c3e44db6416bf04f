package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/feedback"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/idgen"
	"github.com/BrandonDHaskell/rollcall/internal/metrics"
)

type TapKind string

const (
	TapAttendee     TapKind = "attendee"
	TapOwner        TapKind = "owner"
	TapUnregistered TapKind = "unregistered"
)

// TapResult describes what one tap did.  Outcome is set for attendee and
// unregistered taps; Session, Records and Failed for owner taps.
type TapResult struct {
	Kind     TapKind
	Outcome  types.IntakeOutcome
	Identity types.Identity
	Session  *types.Session
	Records  []types.AttendanceRecord
	Failed   int
}

type EngineConfig struct {
	// ReverifyConfirmed replays verification for every confirmed attendee
	// at each rollover instead of only those promoted by it.
	ReverifyConfirmed bool

	// ReadBackoff is the pause after a reader error.
	ReadBackoff time.Duration
}

type Dependencies struct {
	Registry *IdentityRegistry
	Reader   hardware.TokenReader
	Verifier *Verifier
	Gateway  *Gateway
	Signaler feedback.Signaler
	Logger   *slog.Logger

	// Optional.
	Now           func() time.Time
	NewSessionID  func(courseCode string, at time.Time) (string, error)
	NewRunID      func() string
	OnStateChange func(types.RunSnapshot)
}

const sessionIDAttempts = 5

// Engine is the intake loop.  All taps are handled one at a time; while a
// rollover is verifying, later taps wait.
type Engine struct {
	deps Dependencies
	cfg  EngineConfig

	mu        sync.Mutex
	state     *RunState
	runID     string
	issued    map[string]struct{}
	verifying bool

	snap atomic.Pointer[types.RunSnapshot]
}

func NewEngine(deps Dependencies, cfg EngineConfig) *Engine {
	if deps.Signaler == nil {
		deps.Signaler = feedback.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewSessionID == nil {
		deps.NewSessionID = idgen.SessionID
	}
	if deps.NewRunID == nil {
		deps.NewRunID = idgen.RunID
	}
	if cfg.ReadBackoff <= 0 {
		cfg.ReadBackoff = 500 * time.Millisecond
	}

	e := &Engine{
		deps:   deps,
		cfg:    cfg,
		state:  NewRunState(),
		runID:  deps.NewRunID(),
		issued: make(map[string]struct{}),
	}
	if cfg.ReverifyConfirmed {
		deps.Logger.Warn("re-verifying the whole confirmed set on every rollover; confirmed attendees face the camera again each session")
	}
	e.publish()
	return e
}

// Run reads taps until ctx is cancelled or the reader closes.  Per-tap
// failures are logged and never stop the loop.  On return the run state is
// discarded and the open session, if any, is closed.
func (e *Engine) Run(ctx context.Context) error {
	e.deps.Logger.InfoContext(ctx, "intake loop started", "run_id", e.runID)
	defer e.reset(ctx)

	for {
		tr, err := e.deps.Reader.ReadToken(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				e.deps.Logger.InfoContext(ctx, "intake loop interrupted", "run_id", e.runID)
				return nil
			case errors.Is(err, hardware.ErrReaderClosed):
				e.deps.Logger.InfoContext(ctx, "token reader closed", "run_id", e.runID)
				return nil
			}
			e.deps.Logger.WarnContext(ctx, "token read failed", "err", err)
			if !sleepCtx(ctx, e.cfg.ReadBackoff) {
				return nil
			}
			continue
		}

		if _, err := e.HandleToken(ctx, tr); err != nil {
			if ctx.Err() != nil {
				e.deps.Logger.InfoContext(ctx, "intake loop interrupted during tap", "run_id", e.runID)
				return nil
			}
			e.deps.Logger.ErrorContext(ctx, "tap failed", "token", tr.Token, "err", err)
		}
	}
}

// HandleToken dispatches one tap.  Owner taps are checked first and roll the
// session over; attendee taps go through intake; anything else is
// unregistered.
func (e *Engine) HandleToken(ctx context.Context, tr hardware.TokenRead) (TapResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := tr.At
	if at.IsZero() {
		at = e.deps.Now()
	}

	id, err := e.deps.Registry.Resolve(ctx, tr.Token)
	if err != nil {
		e.signal(ctx, feedback.SignalError, "", tr.Token)
		return TapResult{}, fmt.Errorf("resolve token: %w", err)
	}

	switch v := id.(type) {
	case types.Owner:
		return e.rollover(ctx, v, at)
	case types.Attendee:
		return e.intake(ctx, v, at), nil
	default:
		metrics.TrackIntake(types.OutcomeUnregistered.String())
		e.deps.Logger.InfoContext(ctx, "unregistered token", "token", tr.Token, "module_id", tr.ModuleID)
		e.signal(ctx, feedback.SignalError, e.sessionIDLocked(), tr.Token)
		return TapResult{Kind: TapUnregistered, Outcome: types.OutcomeUnregistered}, nil
	}
}

func (e *Engine) intake(ctx context.Context, att types.Attendee, at time.Time) TapResult {
	outcome := e.state.Admit(types.PendingCheckIn{
		IdentityID: att.ID,
		Name:       att.Name,
		Token:      att.Token,
		TapTime:    at.UTC(),
	})
	metrics.TrackIntake(outcome.String())

	sessionID := e.sessionIDLocked()
	e.deps.Logger.InfoContext(ctx, "intake",
		"outcome", outcome.String(), "identity_id", att.ID, "token", att.Token, "session_id", sessionID)

	if outcome == types.OutcomeNewCheckIn {
		e.signal(ctx, feedback.SignalSuccess, sessionID, att.Token)
	} else {
		e.signal(ctx, feedback.SignalDuplicate, sessionID, att.Token)
	}
	e.publish()
	return TapResult{Kind: TapAttendee, Outcome: outcome, Identity: att}
}

// rollover opens a new session for owner, closes the previous one and
// verifies the batch synchronously.  Every identity in the batch ends with
// exactly one record unless its templates cannot be read, its local write
// fails, or ctx is cancelled.
func (e *Engine) rollover(ctx context.Context, owner types.Owner, at time.Time) (TapResult, error) {
	e.signal(ctx, feedback.SignalSessionStart, "", owner.Token)

	id, err := e.nextSessionID(owner.CourseCode, at)
	if err != nil {
		e.signal(ctx, feedback.SignalError, "", owner.Token)
		return TapResult{}, err
	}
	sess := types.Session{
		ID:         id,
		RunID:      e.runID,
		OwnerID:    owner.ID,
		OwnerName:  owner.Name,
		OwnerToken: owner.Token,
		CourseName: owner.CourseName,
		CourseCode: owner.CourseCode,
		OpenedAt:   at.UTC(),
		Status:     types.SessionActive,
	}

	prev, batch := e.state.Rollover(sess, e.cfg.ReverifyConfirmed)
	metrics.SessionsOpened.Inc()
	e.setVerifying(true)
	defer e.setVerifying(false)

	if prev != nil {
		if err := e.deps.Gateway.CloseSession(ctx, prev.ID, at); err != nil {
			e.deps.Logger.ErrorContext(ctx, "close previous session failed", "session_id", prev.ID, "err", err)
		}
	}
	if err := e.deps.Gateway.OpenSession(ctx, sess); err != nil {
		e.deps.Logger.ErrorContext(ctx, "session not recorded locally", "session_id", sess.ID, "err", err)
	}

	var prevID string
	if prev != nil {
		prevID = prev.ID
	}
	e.deps.Logger.InfoContext(ctx, "session opened",
		"session_id", sess.ID, "course_code", sess.CourseCode, "previous", prevID, "batch", len(batch))

	res := TapResult{Kind: TapOwner, Identity: owner, Session: &sess}
	for _, p := range batch {
		rec, err := e.deps.Verifier.Verify(ctx, p, sess.ID)
		if err != nil {
			if ctx.Err() != nil {
				return res, err
			}
			res.Failed++
			e.deps.Logger.ErrorContext(ctx, "verification failed, no record written",
				"session_id", sess.ID, "identity_id", p.IdentityID, "err", err)
			e.signal(ctx, feedback.SignalError, sess.ID, p.Token)
			continue
		}

		if err := e.deps.Gateway.Commit(ctx, rec); err != nil {
			res.Failed++
			e.deps.Logger.ErrorContext(ctx, "attendance record lost",
				"session_id", sess.ID, "identity_id", rec.IdentityID, "status", string(rec.Status), "err", err)
			e.signal(ctx, feedback.SignalError, sess.ID, rec.Token)
			continue
		}
		res.Records = append(res.Records, rec)

		if rec.Status == types.StatusPresent {
			e.signal(ctx, feedback.SignalSuccess, sess.ID, rec.Token)
		} else {
			e.signal(ctx, feedback.SignalError, sess.ID, rec.Token)
		}
	}

	e.signal(ctx, feedback.SignalSessionReady, sess.ID, "")
	return res, nil
}

// nextSessionID derives an id not yet issued in this process.
func (e *Engine) nextSessionID(courseCode string, at time.Time) (string, error) {
	for i := 0; i < sessionIDAttempts; i++ {
		id, err := e.deps.NewSessionID(courseCode, at)
		if err != nil {
			return "", fmt.Errorf("session id: %w", err)
		}
		if _, dup := e.issued[id]; !dup {
			e.issued[id] = struct{}{}
			return id, nil
		}
	}
	return "", fmt.Errorf("session id: no unique id after %d attempts", sessionIDAttempts)
}

// reset discards the run state and closes the open session.  Stores get a
// short grace period even though ctx is already done.
func (e *Engine) reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.state.Session()
	e.state.Reset()
	e.verifying = false
	e.publish()

	if sess == nil {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.deps.Gateway.CloseSession(cctx, sess.ID, e.deps.Now()); err != nil {
		e.deps.Logger.ErrorContext(cctx, "close session on shutdown failed", "session_id", sess.ID, "err", err)
	}
	e.deps.Logger.InfoContext(cctx, "run state cleared", "run_id", e.runID, "session_id", sess.ID)
}

// Snapshot returns a read-only view of the loop.  Safe from any goroutine.
func (e *Engine) Snapshot() types.RunSnapshot {
	s := *e.snap.Load()
	s.ServerTime = time.Now().UTC().Format(time.RFC3339Nano)
	return s
}

func (e *Engine) RunID() string { return e.runID }

func (e *Engine) setVerifying(v bool) {
	e.verifying = v
	e.publish()
	if e.deps.OnStateChange != nil {
		e.deps.OnStateChange(*e.snap.Load())
	}
}

// publish refreshes the snapshot.  Callers hold mu, except NewEngine.
func (e *Engine) publish() {
	fresh, confirmed := e.state.Counts()
	metrics.PendingCheckIns.Set(float64(fresh))

	s := types.RunSnapshot{
		RunID:          e.runID,
		Verifying:      e.verifying,
		NewCount:       fresh,
		ConfirmedCount: confirmed,
	}
	if sess := e.state.Session(); sess != nil {
		s.Active = true
		s.SessionID = sess.ID
		s.CourseCode = sess.CourseCode
		s.OpenedAt = sess.OpenedAt.Format(time.RFC3339)
	}
	e.snap.Store(&s)
}

func (e *Engine) sessionIDLocked() string {
	if sess := e.state.Session(); sess != nil {
		return sess.ID
	}
	return ""
}

func (e *Engine) signal(ctx context.Context, s feedback.Signal, sessionID, token string) {
	ev := feedback.NewEvent(s)
	ev.SessionID = sessionID
	ev.Token = token
	if err := e.deps.Signaler.Signal(ctx, ev); err != nil {
		e.deps.Logger.DebugContext(ctx, "feedback signal failed", "signal", string(s), "err", err)
	}
}
