package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/service"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/store/mongo"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/store/sqlite"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/config"
	"github.com/BrandonDHaskell/rollcall/internal/db"
	"github.com/BrandonDHaskell/rollcall/internal/feedback"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/sim"
)

// app holds the stores and devices shared by the commands.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	db       *sql.DB
	writer   *db.Worker
	ids      *sqlite.IdentityStore
	sessions *sqlite.SessionStore
	log      *sqlite.AttendanceLog
	mirror   store.Mirror
	signaler feedback.Signaler

	// script is set when ROLLCALL_SIM_SCRIPT drives the hardware.
	script *sim.Script

	closers []func(context.Context) error
}

type appOptions struct {
	mirror   bool
	signaler bool
}

func openApp(ctx context.Context, opts *RootOptions, ao appOptions) (*app, error) {
	cfg := opts.Config
	a := &app{cfg: cfg, logger: opts.Logger, mirror: store.NoopMirror{}, signaler: feedback.LogSignaler{Logger: opts.Logger}}

	a.logger.Info("opening database", "path", cfg.DBPath)
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	a.db = conn
	a.writer = db.NewWorker(conn)
	a.ids = sqlite.NewIdentityStore(conn, a.writer)
	a.sessions = sqlite.NewSessionStore(conn, a.writer)
	a.log = sqlite.NewAttendanceLog(conn, a.writer)

	if cfg.SimScript != "" {
		a.script, err = sim.LoadScript(cfg.SimScript)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load sim script", err)
		}
	}

	if ao.mirror && cfg.MongoURI != "" {
		m, err := mongo.Connect(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDB, Timeout: cfg.MongoTimeout})
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect remote mirror", err)
		}
		a.mirror = m
		a.closers = append(a.closers, m.Close)
		a.logger.Info("remote mirror enabled", "database", cfg.MongoDB)
	}

	if ao.signaler && cfg.NATSURL != "" {
		s, err := feedback.NewNATSSignaler(cfg.NATSURL, cfg.FeedbackSubject)
		if err != nil {
			// Feedback is presentation only; run without the bus.
			a.logger.Warn("feedback bus unavailable, logging signals instead", "err", err)
		} else {
			a.signaler = s
			a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		}
	}

	return a, nil
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("close failed", "err", err)
		}
	}
	if a.writer != nil {
		a.writer.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("error closing database", "err", err)
		}
	}
}

func (a *app) registry() *service.IdentityRegistry {
	return service.NewIdentityRegistry(a.ids)
}

func (a *app) gateway() *service.Gateway {
	return service.NewGateway(a.log, a.sessions, a.mirror, a.logger)
}

// camera returns the capture devices.  Without a sim script the box has no
// supported camera, so every verification ends Partial.
func (a *app) camera() (hardware.Camera, hardware.Recognizer) {
	if a.script == nil {
		return hardware.NoCamera{}, hardware.NoRecognizer{}
	}
	every := a.script.FrameEvery
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	return sim.NewCamera(a.script.Frames, every), sim.Recognizer{}
}

// seedScript enrolls the script's owners and attendees.  Tokens that are
// already bound are left alone.
func (a *app) seedScript(ctx context.Context) error {
	if a.script == nil {
		return nil
	}
	now := time.Now().UTC()
	for _, o := range a.script.Owners {
		_, err := a.ids.RegisterOwner(ctx, store.NewOwner{
			Name: o.Name, Token: o.Token, CourseName: o.CourseName, CourseCode: o.CourseCode, EnrolledAt: now,
		})
		if err != nil && !errors.Is(err, store.ErrDuplicateToken) {
			return fmt.Errorf("seed owner %s: %w", o.Token, err)
		}
	}
	for _, at := range a.script.Attendees {
		label := at.FaceLabel()
		_, err := a.ids.RegisterAttendee(ctx, store.NewAttendee{
			Name:       at.Name,
			Token:      at.Token,
			Templates:  []types.Descriptor{sim.FaceVariant(label, 1), sim.FaceVariant(label, 2)},
			EnrolledAt: now,
		})
		if err != nil && !errors.Is(err, store.ErrDuplicateToken) {
			return fmt.Errorf("seed attendee %s: %w", at.Token, err)
		}
	}
	a.logger.Info("sim identities seeded", "owners", len(a.script.Owners), "attendees", len(a.script.Attendees))
	return nil
}
