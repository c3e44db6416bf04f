package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/rollcall/internal/config"
)

// RootOptions holds global flags and the configuration loaded for every
// command.
type RootOptions struct {
	Verbose bool
	EnvFile string
	Format  string // "json" | "text"

	Config config.Config
	Logger *slog.Logger
}

var validFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rollcall",
		Short: "Card tap and face verified classroom attendance",
		Long: `rollcall takes attendance from card taps.  Taps stage attendees; the
course owner's tap opens a session and verifies every staged attendee against
the camera before recording them as present or partial.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return WrapExitError(ExitCommandError, "invalid flags",
					fmt.Errorf("format %q must be one of %v", opts.Format, validFormats))
			}
			if err := config.LoadDotEnv(opts.EnvFile); err != nil {
				return WrapExitError(ExitCommandError, "failed to load env file", err)
			}
			opts.Config = config.FromEnv()
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Config, opts.Verbose)
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional env file overlaid on the environment")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewEnrollCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))

	return cmd
}

func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
