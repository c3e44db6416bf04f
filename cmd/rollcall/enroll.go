package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/service"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/sim"
)

type EnrollOptions struct {
	*RootOptions
	Token      string
	CourseName string
	CourseCode string
}

func NewEnrollCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Bind a card to a new attendee or course owner",
	}
	cmd.AddCommand(newEnrollAttendeeCommand(rootOpts))
	cmd.AddCommand(newEnrollOwnerCommand(rootOpts))
	return cmd
}

func newEnrollAttendeeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnrollOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "attendee <name>",
		Short: "Enroll an attendee with face templates",
		Long: `Enroll an attendee.  The card is read first (or given with --token); a card
that is already bound is rejected before any capture.  The operator is then
walked through the capture prompts and at least two usable captures are
needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnroll(cmd, opts, args[0], false)
		},
	}
	cmd.Flags().StringVar(&opts.Token, "token", "", "card token (read from the reader when empty)")
	return cmd
}

func newEnrollOwnerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnrollOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "owner <name>",
		Short: "Enroll a course owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnroll(cmd, opts, args[0], true)
		},
	}
	cmd.Flags().StringVar(&opts.Token, "token", "", "card token (read from the reader when empty)")
	cmd.Flags().StringVar(&opts.CourseName, "course-name", "", "course name (required)")
	cmd.Flags().StringVar(&opts.CourseCode, "course-code", "", "course code (required)")
	_ = cmd.MarkFlagRequired("course-name")
	_ = cmd.MarkFlagRequired("course-code")
	return cmd
}

func runEnroll(cmd *cobra.Command, opts *EnrollOptions, name string, owner bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, opts.RootOptions, appOptions{signaler: true})
	if err != nil {
		return err
	}
	defer a.Close()

	con := newConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	camera, recognizer := a.camera()
	var prompter hardware.Prompter = con
	if a.script != nil {
		prompter = &sim.Prompter{}
	}

	cfg := a.cfg
	enroll := service.NewEnrollment(service.EnrollmentDeps{
		Registry:   a.registry(),
		Camera:     camera,
		Recognizer: recognizer,
		Prompter:   prompter,
		Signaler:   a.signaler,
		Logger:     a.logger,
	}, service.EnrollmentConfig{
		Samples:       cfg.EnrollSamples,
		MinSamples:    cfg.EnrollMinSamples,
		SampleTimeout: cfg.EnrollSampleTimeout,
		RetryDelay:    cfg.CaptureRetry,
	})

	if !owner && a.script == nil {
		return WrapExitError(ExitCommandError, "attendee enrollment needs a camera",
			errors.New("no camera is supported on this box; set ROLLCALL_SIM_SCRIPT for the sim camera"))
	}

	token, err := enrollToken(ctx, opts.Token, a, con)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read card", err)
	}
	if err := enroll.CheckToken(ctx, token); err != nil {
		return enrollError(err)
	}

	out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
	if owner {
		own, err := enroll.EnrollOwner(ctx, service.OwnerRequest{
			Name: name, Token: token, CourseName: opts.CourseName, CourseCode: opts.CourseCode,
		})
		if err != nil {
			return enrollError(err)
		}
		return out.Print(ownerRow(own), fmt.Sprintf("Enrolled owner %s (%s) for %s", own.Name, own.ID, own.CourseCode))
	}

	att, err := enroll.EnrollAttendee(ctx, service.AttendeeRequest{Name: name, Token: token})
	if err != nil {
		return enrollError(err)
	}
	return out.Print(attendeeRow(att), fmt.Sprintf("Enrolled %s (%s) with %d templates", att.Name, att.ID, len(att.Templates)))
}

// enrollToken returns the --token value, else the next tap from the sim
// script, else a line from the console reader.
func enrollToken(ctx context.Context, flag string, a *app, con *console) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.script != nil {
		tr, err := sim.NewReader(a.script.Taps, true).ReadToken(ctx)
		if err != nil {
			return "", err
		}
		return tr.Token, nil
	}
	return con.readToken(ctx)
}

func enrollError(err error) error {
	switch {
	case errors.Is(err, service.ErrTokenAlreadyRegistered):
		return WrapExitError(ExitFailure, "card already registered", err)
	case errors.Is(err, service.ErrInsufficientSamples):
		return WrapExitError(ExitFailure, "not enough face captures", err)
	case errors.Is(err, service.ErrInvalidEnrollment):
		return WrapExitError(ExitCommandError, "invalid enrollment", err)
	default:
		return WrapExitError(ExitFailure, "enrollment failed", err)
	}
}
