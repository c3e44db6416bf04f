package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List enrolled owners and attendees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if role != "" && role != "owner" && role != "attendee" {
				return WrapExitError(ExitCommandError, "invalid flags", fmt.Errorf("role %q must be owner or attendee", role))
			}

			a, err := openApp(ctx, rootOpts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			reg := a.registry()
			var rows []identityRow
			if role != "attendee" {
				owners, err := reg.ListOwners(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list owners", err)
				}
				for _, o := range owners {
					rows = append(rows, ownerRow(o))
				}
			}
			if role != "owner" {
				attendees, err := reg.ListAttendees(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list attendees", err)
				}
				for _, at := range attendees {
					rows = append(rows, attendeeRow(at))
				}
			}

			lines := make([]string, 0, len(rows))
			for _, r := range rows {
				lines = append(lines, r.String())
			}
			if len(lines) == 0 {
				lines = append(lines, "no identities enrolled")
			}
			return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout()).Print(rows, strings.Join(lines, "\n"))
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only list this role (owner|attendee)")
	return cmd
}
