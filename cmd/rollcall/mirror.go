package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/service"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
)

func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Maintain the remote mirror",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "replay <session-id>",
		Short: "Re-push a session and its attendance to the remote mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if rootOpts.Config.MongoURI == "" {
				return WrapExitError(ExitCommandError, "no remote mirror configured", errors.New("set ROLLCALL_MONGO_URI"))
			}

			a, err := openApp(ctx, rootOpts, appOptions{mirror: true})
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := service.NewMirrorReplayer(a.sessions, a.log, a.mirror).Replay(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return WrapExitError(ExitCommandError, "unknown session", err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("replay incomplete (%d records mirrored)", n), err)
			}

			return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout()).Print(
				map[string]any{"session_id": args[0], "records": n},
				fmt.Sprintf("Mirrored session %s with %d records", args[0], n),
			)
		},
	})
	return cmd
}
