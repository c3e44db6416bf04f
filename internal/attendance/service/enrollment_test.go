package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/service"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/store/memory"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/feedback"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/sim"
)

type enrollRig struct {
	ids      *memory.IdentityStore
	camera   *sim.Camera
	prompter *sim.Prompter
	signals  *feedback.Recorder
	enroll   *service.Enrollment
}

func newEnrollRig(t *testing.T) *enrollRig {
	t.Helper()
	r := &enrollRig{
		ids:      memory.NewIdentityStore(),
		camera:   sim.NewCamera(nil, time.Millisecond),
		prompter: &sim.Prompter{},
		signals:  &feedback.Recorder{},
	}
	r.enroll = service.NewEnrollment(service.EnrollmentDeps{
		Registry:   service.NewIdentityRegistry(r.ids),
		Camera:     r.camera,
		Recognizer: sim.Recognizer{},
		Prompter:   r.prompter,
		Signaler:   r.signals,
		Logger:     discardLogger(),
	}, service.EnrollmentConfig{
		Samples:       3,
		MinSamples:    2,
		SampleTimeout: 30 * time.Millisecond,
		RetryDelay:    time.Millisecond,
	})
	return r
}

func lastSignal(rec *feedback.Recorder) feedback.Signal {
	s := rec.Signals()
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendee enrollment
// ═══════════════════════════════════════════════════════════════════════════

func TestEnrollAttendee_StoresAllSamples(t *testing.T) {
	r := newEnrollRig(t)
	r.camera.Queue(
		sim.FrameSpec{Faces: []string{"ada"}},
		sim.FrameSpec{Faces: []string{"ada"}},
		sim.FrameSpec{Faces: []string{"ada"}},
	)

	att, err := r.enroll.EnrollAttendee(context.Background(), service.AttendeeRequest{Name: "Ada", Token: "1001"})
	if err != nil {
		t.Fatalf("EnrollAttendee: %v", err)
	}
	if len(att.Templates) != 3 {
		t.Errorf("expected 3 templates, got %d", len(att.Templates))
	}
	if att.ID != "att-000001" {
		t.Errorf("expected att-000001, got %s", att.ID)
	}

	prompts := r.prompter.Prompts()
	want := []string{
		"Ada, look directly at the camera",
		"Ada, turn slightly to the left",
		"Ada, turn slightly to the right",
	}
	if len(prompts) != len(want) {
		t.Fatalf("expected %d prompts, got %v", len(want), prompts)
	}
	for i := range want {
		if prompts[i] != want[i] {
			t.Errorf("prompt %d = %q, want %q", i, prompts[i], want[i])
		}
	}
	if lastSignal(r.signals) != feedback.SignalEnrolled {
		t.Errorf("expected enrolled signal, got %v", r.signals.Signals())
	}
}

// stagingPrompter queues the frames for prompt i on the camera when that
// prompt is issued, so each capture sees only its own frames.
type stagingPrompter struct {
	sim.Prompter
	camera *sim.Camera
	stages [][]sim.FrameSpec
	n      int
}

func (p *stagingPrompter) Prompt(ctx context.Context, msg string) error {
	if p.n < len(p.stages) {
		p.camera.Queue(p.stages[p.n]...)
	}
	p.n++
	return p.Prompter.Prompt(ctx, msg)
}

func TestEnrollAttendee_QuorumMetWithOneMiss(t *testing.T) {
	r := newEnrollRig(t)
	sp := &stagingPrompter{
		camera: r.camera,
		stages: [][]sim.FrameSpec{
			{{Faces: []string{"ada"}}},
			nil,
			{{Faces: []string{"ada"}}},
		},
	}
	r.enroll = service.NewEnrollment(service.EnrollmentDeps{
		Registry:   service.NewIdentityRegistry(r.ids),
		Camera:     r.camera,
		Recognizer: sim.Recognizer{},
		Prompter:   sp,
		Signaler:   r.signals,
		Logger:     discardLogger(),
	}, service.EnrollmentConfig{Samples: 3, MinSamples: 2, SampleTimeout: 30 * time.Millisecond, RetryDelay: time.Millisecond})

	att, err := r.enroll.EnrollAttendee(context.Background(), service.AttendeeRequest{Name: "Ada", Token: "1001"})
	if err != nil {
		t.Fatalf("two of three captures should meet quorum: %v", err)
	}
	if len(att.Templates) != 2 {
		t.Errorf("expected 2 templates, got %d", len(att.Templates))
	}
	if len(sp.Prompts()) != 3 {
		t.Errorf("every prompt is issued even after a miss, got %v", sp.Prompts())
	}
}

func TestEnrollAttendee_InsufficientSamplesStoresNothing(t *testing.T) {
	r := newEnrollRig(t)
	r.camera.Queue(sim.FrameSpec{Faces: []string{"ada"}}, sim.FrameSpec{Fail: true})

	_, err := r.enroll.EnrollAttendee(context.Background(), service.AttendeeRequest{Name: "Ada", Token: "1001"})
	if !errors.Is(err, service.ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}

	id, _ := r.ids.LookupByToken(context.Background(), "1001")
	if id != nil {
		t.Error("no partial template set may be stored")
	}
	if lastSignal(r.signals) != feedback.SignalEnrollFailed {
		t.Errorf("expected enroll_failed signal, got %v", r.signals.Signals())
	}
}

// blankRecognizer reports one zero-length descriptor for every frame.
type blankRecognizer struct{}

func (blankRecognizer) Describe(context.Context, hardware.Frame) ([]types.Descriptor, error) {
	return []types.Descriptor{{}}, nil
}

func TestEnrollAttendee_WrongDimensionFacesDoNotCount(t *testing.T) {
	r := newEnrollRig(t)
	r.enroll = service.NewEnrollment(service.EnrollmentDeps{
		Registry:   service.NewIdentityRegistry(r.ids),
		Camera:     r.camera,
		Recognizer: blankRecognizer{},
		Prompter:   r.prompter,
		Signaler:   r.signals,
		Logger:     discardLogger(),
	}, service.EnrollmentConfig{Samples: 3, MinSamples: 2, SampleTimeout: 30 * time.Millisecond, RetryDelay: time.Millisecond})
	r.camera.Queue(
		sim.FrameSpec{Faces: []string{"ada"}},
		sim.FrameSpec{Faces: []string{"ada"}},
		sim.FrameSpec{Faces: []string{"ada"}},
	)

	_, err := r.enroll.EnrollAttendee(context.Background(), service.AttendeeRequest{Name: "Ada", Token: "1001"})
	if !errors.Is(err, service.ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}

	id, _ := r.ids.LookupByToken(context.Background(), "1001")
	if id != nil {
		t.Errorf("nothing may be stored, got %v", id)
	}
}

func TestEnrollAttendee_DuplicateTokenFailsFast(t *testing.T) {
	r := newEnrollRig(t)
	if _, err := r.ids.RegisterOwner(context.Background(), store.NewOwner{Name: "Dr. Reyes", Token: "9001", CourseCode: "CS101"}); err != nil {
		t.Fatalf("seed owner: %v", err)
	}

	_, err := r.enroll.EnrollAttendee(context.Background(), service.AttendeeRequest{Name: "Ada", Token: "9001"})
	if !errors.Is(err, service.ErrTokenAlreadyRegistered) {
		t.Fatalf("expected ErrTokenAlreadyRegistered, got %v", err)
	}
	if !errors.Is(err, store.ErrDuplicateToken) {
		t.Error("ErrTokenAlreadyRegistered should wrap store.ErrDuplicateToken")
	}
	if len(r.prompter.Prompts()) != 0 {
		t.Error("no capture may start for a bound token")
	}
	if lastSignal(r.signals) != feedback.SignalDuplicate {
		t.Errorf("expected duplicate signal, got %v", r.signals.Signals())
	}
}

func TestEnrollAttendee_InvalidRequest(t *testing.T) {
	r := newEnrollRig(t)

	_, err := r.enroll.EnrollAttendee(context.Background(), service.AttendeeRequest{Name: "  ", Token: "1001"})
	if !errors.Is(err, service.ErrInvalidEnrollment) {
		t.Fatalf("expected ErrInvalidEnrollment, got %v", err)
	}
}

func TestEnrollment_MinimumPromptsAndQuorum(t *testing.T) {
	e := service.NewEnrollment(service.EnrollmentDeps{}, service.EnrollmentConfig{Samples: 1, MinSamples: 1})
	if got := len(e.Prompts("Ada")); got != service.MinPrompts {
		t.Errorf("expected at least %d prompts, got %d", service.MinPrompts, got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Owner enrollment
// ═══════════════════════════════════════════════════════════════════════════

func TestEnrollOwner(t *testing.T) {
	r := newEnrollRig(t)

	own, err := r.enroll.EnrollOwner(context.Background(), service.OwnerRequest{
		Name: "Dr. Reyes", Token: "9001", CourseName: "Intro to Systems", CourseCode: "CS101",
	})
	if err != nil {
		t.Fatalf("EnrollOwner: %v", err)
	}
	if own.ID != "own-000001" || own.CourseCode != "CS101" {
		t.Errorf("unexpected owner %+v", own)
	}
	if lastSignal(r.signals) != feedback.SignalOwnerEnrolled {
		t.Errorf("expected owner_enrolled signal, got %v", r.signals.Signals())
	}

	_, err = r.enroll.EnrollOwner(context.Background(), service.OwnerRequest{
		Name: "Other", Token: "9001", CourseName: "X", CourseCode: "CS102",
	})
	if !errors.Is(err, service.ErrTokenAlreadyRegistered) {
		t.Errorf("expected ErrTokenAlreadyRegistered, got %v", err)
	}
}

func TestEnrollOwner_MissingCourse(t *testing.T) {
	r := newEnrollRig(t)

	_, err := r.enroll.EnrollOwner(context.Background(), service.OwnerRequest{Name: "Dr. Reyes", Token: "9001"})
	if !errors.Is(err, service.ErrInvalidEnrollment) {
		t.Fatalf("expected ErrInvalidEnrollment, got %v", err)
	}
}
