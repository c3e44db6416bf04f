package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/feedback"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
)

var defaultPrompts = []string{
	"look directly at the camera",
	"turn slightly to the left",
	"turn slightly to the right",
}

// MinPrompts is the fewest capture attempts an enrollment makes.
const MinPrompts = 3

type EnrollmentConfig struct {
	// Samples is the number of guided capture attempts.  Values below
	// MinPrompts are raised to it.
	Samples int

	// MinSamples is the quorum of successful captures.  Never below
	// types.MinTemplates.
	MinSamples int

	// SampleTimeout bounds each capture attempt.
	SampleTimeout time.Duration

	// RetryDelay is the pause after a failed or faceless frame grab.
	RetryDelay time.Duration
}

type AttendeeRequest struct {
	Name  string `validate:"required,max=128"`
	Token string `validate:"required,max=64"`
}

type OwnerRequest struct {
	Name       string `validate:"required,max=128"`
	Token      string `validate:"required,max=64"`
	CourseName string `validate:"required,max=128"`
	CourseCode string `validate:"required,max=32"`
}

type EnrollmentDeps struct {
	Registry   *IdentityRegistry
	Camera     hardware.Camera
	Recognizer hardware.Recognizer
	Prompter   hardware.Prompter
	Signaler   feedback.Signaler
	Logger     *slog.Logger
	Now        func() time.Time
}

// Enrollment binds new cards to identities.  Attendees are enrolled with
// face templates captured through a short guided sequence.
type Enrollment struct {
	deps     EnrollmentDeps
	cfg      EnrollmentConfig
	validate *validator.Validate
}

func NewEnrollment(deps EnrollmentDeps, cfg EnrollmentConfig) *Enrollment {
	if cfg.Samples < MinPrompts {
		cfg.Samples = MinPrompts
	}
	if cfg.MinSamples < types.MinTemplates {
		cfg.MinSamples = types.MinTemplates
	}
	if cfg.MinSamples > cfg.Samples {
		cfg.MinSamples = cfg.Samples
	}
	if cfg.SampleTimeout <= 0 {
		cfg.SampleTimeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if deps.Signaler == nil {
		deps.Signaler = feedback.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Enrollment{deps: deps, cfg: cfg, validate: validator.New()}
}

// Prompts returns the operator prompts for one enrollment of name.
func (e *Enrollment) Prompts(name string) []string {
	out := make([]string, e.cfg.Samples)
	for i := range out {
		out[i] = fmt.Sprintf("%s, %s", name, defaultPrompts[i%len(defaultPrompts)])
	}
	return out
}

func (e *Enrollment) EnrollAttendee(ctx context.Context, req AttendeeRequest) (types.Attendee, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Token = strings.TrimSpace(req.Token)
	if err := e.validate.Struct(req); err != nil {
		return types.Attendee{}, fmt.Errorf("%w: %v", ErrInvalidEnrollment, err)
	}
	if err := e.checkUnbound(ctx, req.Token); err != nil {
		return types.Attendee{}, err
	}

	samples, err := e.CaptureSamples(ctx, req.Name)
	if err != nil {
		return types.Attendee{}, err
	}
	if len(samples) < e.cfg.MinSamples {
		e.deps.Logger.WarnContext(ctx, "enrollment failed",
			"token", req.Token, "samples", len(samples), "need", e.cfg.MinSamples)
		e.signal(ctx, feedback.SignalEnrollFailed, req.Token)
		return types.Attendee{}, fmt.Errorf("%w: captured %d of %d", ErrInsufficientSamples, len(samples), e.cfg.MinSamples)
	}

	att, err := e.deps.Registry.registerAttendee(ctx, store.NewAttendee{
		Name:       req.Name,
		Token:      req.Token,
		Templates:  samples,
		EnrolledAt: e.deps.Now().UTC(),
	})
	if err != nil {
		e.failed(ctx, req.Token, err)
		return types.Attendee{}, err
	}

	e.deps.Logger.InfoContext(ctx, "attendee enrolled",
		"identity_id", att.ID, "token", att.Token, "templates", len(att.Templates))
	e.signal(ctx, feedback.SignalEnrolled, att.Token)
	return att, nil
}

func (e *Enrollment) EnrollOwner(ctx context.Context, req OwnerRequest) (types.Owner, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Token = strings.TrimSpace(req.Token)
	req.CourseName = strings.TrimSpace(req.CourseName)
	req.CourseCode = strings.TrimSpace(req.CourseCode)
	if err := e.validate.Struct(req); err != nil {
		return types.Owner{}, fmt.Errorf("%w: %v", ErrInvalidEnrollment, err)
	}
	if err := e.checkUnbound(ctx, req.Token); err != nil {
		return types.Owner{}, err
	}

	own, err := e.deps.Registry.registerOwner(ctx, store.NewOwner{
		Name:       req.Name,
		Token:      req.Token,
		CourseName: req.CourseName,
		CourseCode: req.CourseCode,
		EnrolledAt: e.deps.Now().UTC(),
	})
	if err != nil {
		e.failed(ctx, req.Token, err)
		return types.Owner{}, err
	}

	e.deps.Logger.InfoContext(ctx, "owner enrolled",
		"identity_id", own.ID, "token", own.Token, "course_code", own.CourseCode)
	e.signal(ctx, feedback.SignalOwnerEnrolled, own.Token)
	return own, nil
}

// CheckToken fails fast when token is already bound, before any capture.
func (e *Enrollment) CheckToken(ctx context.Context, token string) error {
	return e.checkUnbound(ctx, strings.TrimSpace(token))
}

func (e *Enrollment) checkUnbound(ctx context.Context, token string) error {
	registered, err := e.deps.Registry.IsRegistered(ctx, token)
	if err != nil {
		return fmt.Errorf("token lookup: %w", err)
	}
	if registered {
		e.deps.Logger.WarnContext(ctx, "enrollment rejected: token already registered", "token", token)
		e.signal(ctx, feedback.SignalDuplicate, token)
		return ErrTokenAlreadyRegistered
	}
	return nil
}

func (e *Enrollment) failed(ctx context.Context, token string, err error) {
	if errors.Is(err, ErrTokenAlreadyRegistered) {
		e.signal(ctx, feedback.SignalDuplicate, token)
		return
	}
	e.deps.Logger.ErrorContext(ctx, "enrollment store write failed", "token", token, "err", err)
	e.signal(ctx, feedback.SignalEnrollFailed, token)
}

// CaptureSamples walks the operator through the guided prompts and returns
// one descriptor per successful capture, in prompt order.  A prompt that
// times out without a face contributes nothing.
func (e *Enrollment) CaptureSamples(ctx context.Context, name string) ([]types.Descriptor, error) {
	var samples []types.Descriptor
	for _, prompt := range e.Prompts(name) {
		if err := e.deps.Prompter.Prompt(ctx, prompt); err != nil {
			return nil, fmt.Errorf("prompt: %w", err)
		}

		d, err := e.captureOne(ctx)
		if err != nil {
			return nil, err
		}
		if d == nil {
			e.deps.Logger.InfoContext(ctx, "no face captured", "prompt", prompt)
			continue
		}
		samples = append(samples, d)
	}
	return samples, nil
}

// captureOne returns the first usable face seen within SampleTimeout, or
// nil.  Descriptors of the wrong dimension count as no face.
func (e *Enrollment) captureOne(ctx context.Context) (types.Descriptor, error) {
	wctx, cancel := context.WithTimeout(ctx, e.cfg.SampleTimeout)
	defer cancel()

	for {
		faces, err := nextFaces(wctx, e.deps.Camera, e.deps.Recognizer, e.cfg.RetryDelay)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, nil
		}
		for _, f := range faces {
			if f.Valid() {
				return f.Clone(), nil
			}
		}
		if len(faces) > 0 {
			e.deps.Logger.DebugContext(ctx, "discarding descriptors of wrong dimension", "faces", len(faces))
		}
		if !sleepCtx(wctx, e.cfg.RetryDelay) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, nil
		}
	}
}

func (e *Enrollment) signal(ctx context.Context, s feedback.Signal, token string) {
	ev := feedback.NewEvent(s)
	ev.Token = token
	if err := e.deps.Signaler.Signal(ctx, ev); err != nil {
		e.deps.Logger.DebugContext(ctx, "feedback signal failed", "signal", string(s), "err", err)
	}
}
