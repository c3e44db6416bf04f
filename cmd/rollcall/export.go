package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/service"
)

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the local attendance log as JSONL",
		Long: `Write every local attendance record as JSONL.  The destination is --out
when given, else the configured S3 bucket, else attendance.jsonl beside the
database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := openApp(ctx, rootOpts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			dest, err := exportDestination(ctx, a, out)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open export destination", err)
			}
			n, err := service.ExportOnce(ctx, a.log, dest)
			if err != nil {
				return WrapExitError(ExitFailure, "export failed", err)
			}

			return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout()).Print(
				map[string]any{"records": n, "destination": fmt.Sprint(dest)},
				fmt.Sprintf("Exported %d records to %s", n, dest),
			)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to this file")
	return cmd
}
