package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rig wires an Engine to in-memory stores and sim hardware.
type rig struct {
	ids      *memory.IdentityStore
	lookups  *faultyIdentityStore
	sessions *memory.SessionStore
	log      *memory.AttendanceLog
	mirror   *memory.Mirror
	camera   *sim.Camera
	signals  *feedback.Recorder
	registry *service.IdentityRegistry
	engine   *service.Engine
}

type rigOptions struct {
	cfg           service.EngineConfig
	window        time.Duration
	reader        hardware.TokenReader
	sessionIDs    []string
	onStateChange func(types.RunSnapshot)
}

func newRig(t *testing.T, opts rigOptions) *rig {
	t.Helper()

	if opts.window == 0 {
		opts.window = 60 * time.Millisecond
	}

	r := &rig{
		ids:      memory.NewIdentityStore(),
		sessions: memory.NewSessionStore(),
		log:      memory.NewAttendanceLog(),
		mirror:   memory.NewMirror(),
		camera:   sim.NewCamera(nil, time.Millisecond),
		signals:  &feedback.Recorder{},
	}
	r.lookups = &faultyIdentityStore{IdentityStore: r.ids}
	r.registry = service.NewIdentityRegistry(r.lookups)

	logger := discardLogger()
	verifier := service.NewVerifier(r.registry, r.camera, sim.Recognizer{}, service.VerifierConfig{
		Threshold:  0.6,
		Window:     opts.window,
		RetryDelay: time.Millisecond,
	}, logger)

	r.engine = service.NewEngine(service.Dependencies{
		Registry:      r.registry,
		Reader:        opts.reader,
		Verifier:      verifier,
		Gateway:       service.NewGateway(r.log, r.sessions, r.mirror, logger),
		Signaler:      r.signals,
		Logger:        logger,
		NewSessionID:  sequenceIDs(opts.sessionIDs),
		NewRunID:      func() string { return "run-test" },
		OnStateChange: opts.onStateChange,
	}, opts.cfg)
	return r
}

// sequenceIDs returns the given ids in order, then S<n> ids.
func sequenceIDs(ids []string) func(string, time.Time) (string, error) {
	var (
		mu sync.Mutex
		n  int
	)
	return func(string, time.Time) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		if n <= len(ids) {
			return ids[n-1], nil
		}
		return fmt.Sprintf("S%d", n), nil
	}
}

// enrollAttendee stores an attendee whose face label is name.
func (r *rig) enrollAttendee(t *testing.T, name, token string) types.Attendee {
	t.Helper()
	a, err := r.ids.RegisterAttendee(context.Background(), store.NewAttendee{
		Name:      name,
		Token:     token,
		Templates: []types.Descriptor{sim.FaceVariant(name, 1), sim.FaceVariant(name, 2)},
	})
	if err != nil {
		t.Fatalf("enrollAttendee: %v", err)
	}
	return a
}

func (r *rig) enrollOwner(t *testing.T, token, courseCode string) types.Owner {
	t.Helper()
	o, err := r.ids.RegisterOwner(context.Background(), store.NewOwner{
		Name:       "Dr. Reyes",
		Token:      token,
		CourseName: "Intro to Systems",
		CourseCode: courseCode,
	})
	if err != nil {
		t.Fatalf("enrollOwner: %v", err)
	}
	return o
}

func (r *rig) tap(t *testing.T, token string) service.TapResult {
	t.Helper()
	res, err := r.engine.HandleToken(context.Background(), hardware.TokenRead{Token: token})
	if err != nil {
		t.Fatalf("HandleToken(%s): %v", token, err)
	}
	return res
}

// recordsFor returns the local records for sessionID keyed by identity id.
func (r *rig) recordsFor(t *testing.T, sessionID string) map[string]types.AttendanceRecord {
	t.Helper()
	recs, err := r.log.ListBySession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	out := make(map[string]types.AttendanceRecord, len(recs))
	for _, rec := range recs {
		if _, dup := out[rec.IdentityID]; dup {
			t.Fatalf("two records for %s in %s", rec.IdentityID, sessionID)
		}
		out[rec.IdentityID] = rec
	}
	return out
}

// faultyIdentityStore fails LookupByToken for chosen tokens.
type faultyIdentityStore struct {
	*memory.IdentityStore

	mu   sync.Mutex
	fail map[string]int // remaining failures; negative fails every time
}

func (s *faultyIdentityStore) failLookups(token string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail == nil {
		s.fail = make(map[string]int)
	}
	s.fail[token] = n
}

func (s *faultyIdentityStore) LookupByToken(ctx context.Context, token string) (types.Identity, error) {
	s.mu.Lock()
	n := s.fail[token]
	if n > 0 {
		s.fail[token] = n - 1
	}
	s.mu.Unlock()
	if n != 0 {
		return nil, errors.New("database is locked")
	}
	return s.IdentityStore.LookupByToken(ctx, token)
}
