package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/service"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/export"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/netreader"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/sim"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/wedge"
	"github.com/BrandonDHaskell/rollcall/internal/health"
	"github.com/BrandonDHaskell/rollcall/internal/httpapi"
)

type RunOptions struct {
	*RootOptions
	StdinReader bool
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the intake loop",
		Long: `Start taking attendance.

Taps come from networked reader modules posting to the HTTP API, from a
keyboard-wedge reader on stdin (--stdin-reader), or from the sim script named
by ROLLCALL_SIM_SCRIPT.  The loop stops on Ctrl-C or when the reader closes,
and the open session is closed on the way out.

Example:
  ROLLCALL_SIM_SCRIPT=./testdata/classroom.yaml rollcall run
  rollcall run --stdin-reader --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIntake(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.StdinReader, "stdin-reader", false, "read taps from a keyboard-wedge reader on stdin")
	return cmd
}

func runIntake(cmd *cobra.Command, opts *RunOptions) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			opts.Logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := openApp(ctx, opts.RootOptions, appOptions{mirror: true, signaler: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.seedScript(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to seed sim identities", err)
	}

	cfg := a.cfg
	reader, taps := selectReader(cmd, opts, a)

	var hs *health.Server
	if cfg.GRPCAddr != "" {
		hs = health.NewServer(a.logger)
	}

	camera, recognizer := a.camera()
	registry := a.registry()
	eng := service.NewEngine(service.Dependencies{
		Registry: registry,
		Reader:   reader,
		Verifier: service.NewVerifier(registry, camera, recognizer, service.VerifierConfig{
			Threshold:  cfg.MatchThreshold,
			Window:     cfg.VerifyWindow,
			RetryDelay: cfg.CaptureRetry,
		}, a.logger),
		Gateway:  a.gateway(),
		Signaler: a.signaler,
		Logger:   a.logger,
		OnStateChange: func(s types.RunSnapshot) {
			if hs != nil {
				hs.Observe(s)
			}
		},
	}, service.EngineConfig{ReverifyConfirmed: cfg.ReverifyConfirmed})

	if hs != nil {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen for gRPC", err)
		}
		go func() {
			a.logger.Info("grpc health listening", "addr", cfg.GRPCAddr)
			if err := hs.Serve(lis); err != nil {
				a.logger.Error("grpc server error", "err", err)
			}
		}()
		defer shutdownWithin(5*time.Second, hs.Shutdown)
	}

	if cfg.HTTPAddr != "" {
		deps := httpapi.Dependencies{Logger: a.logger, Addr: cfg.HTTPAddr, Status: eng}
		if taps != nil {
			deps.Taps = taps
		}
		srv := httpapi.NewServer(deps)
		go func() {
			a.logger.Info("http listening", "addr", cfg.HTTPAddr)
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", "err", err)
				cancel()
			}
		}()
		defer shutdownWithin(5*time.Second, func(ctx context.Context) { _ = srv.Shutdown(ctx) })
	}
	if taps != nil {
		defer taps.Close()
	}

	if sched, err := newExportScheduler(ctx, a); err != nil {
		a.logger.Warn("attendance export disabled", "err", err)
	} else if sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	a.logger.Info("engine starting", "run_id", eng.RunID(), "db", cfg.DBPath, "reverify_confirmed", cfg.ReverifyConfirmed)
	fmt.Fprintln(cmd.OutOrStdout(), "Intake started. Waiting for taps...")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := eng.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "intake loop error", err)
	}

	a.logger.Info("engine stopped gracefully", "run_id", eng.RunID())
	return nil
}

// selectReader picks the tap source.  The network reader is also returned
// as the HTTP tap sink; the other sources leave the HTTP tap routes off.
func selectReader(cmd *cobra.Command, opts *RunOptions, a *app) (hardware.TokenReader, *netreader.Reader) {
	switch {
	case a.script != nil:
		a.logger.Info("using sim reader", "script", a.cfg.SimScript, "taps", len(a.script.Taps))
		return sim.NewReader(a.script.Taps, a.script.ExitWhenDone), nil
	case opts.StdinReader:
		a.logger.Info("using keyboard-wedge reader on stdin")
		return wedge.NewReader(cmd.InOrStdin(), ""), nil
	default:
		nr := netreader.New(64, a.cfg.ReaderModules)
		a.logger.Info("using network readers", "modules", len(a.cfg.ReaderModules))
		return nr, nr
	}
}

func newExportScheduler(ctx context.Context, a *app) (*service.ExportScheduler, error) {
	if a.cfg.ExportIntervalMinutes <= 0 {
		return nil, nil
	}
	dest, err := exportDestination(ctx, a, "")
	if err != nil {
		return nil, err
	}
	return service.NewExportScheduler(a.log, dest, service.ExportConfig{IntervalMinutes: a.cfg.ExportIntervalMinutes}, a.logger), nil
}

// exportDestination returns the file at path when set, else S3 when a
// bucket is configured, else a file beside the database.
func exportDestination(ctx context.Context, a *app, path string) (export.Destination, error) {
	if path != "" {
		return export.FileDestination{Path: path}, nil
	}
	if a.cfg.ExportS3Bucket != "" {
		d, err := export.NewS3Destination(ctx, export.S3Config{
			Bucket:   a.cfg.ExportS3Bucket,
			Key:      a.cfg.ExportS3Key,
			Region:   a.cfg.ExportS3Region,
			Endpoint: a.cfg.ExportS3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return export.FileDestination{Path: filepath.Join(filepath.Dir(a.cfg.DBPath), "attendance.jsonl")}, nil
}

func shutdownWithin(d time.Duration, fn func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	fn(ctx)
}
