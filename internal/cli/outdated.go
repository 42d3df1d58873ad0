// Package cli: outdated.go implements the "penv outdated" command.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/shell"
)

// outdatedFlags holds the flag values for the outdated command.
type outdatedFlags struct {
	// upgrade installs the latest version of every outdated package.
	upgrade bool
}

// NewOutdatedCommand creates the "outdated" cobra command.
func NewOutdatedCommand() *cobra.Command {
	flags := &outdatedFlags{}

	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "List packages with newer releases, optionally upgrading them",
		Long: `List installed packages that have a newer release on the package index.

Each package is classified as a major, minor or patch update when both
versions are plain release numbers.

Examples:
  penv outdated
  penv outdated --upgrade`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutdated(cmd.Context(), cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.upgrade, "upgrade", false, "Upgrade all outdated packages")

	return cmd
}

// outdatedJSON is one entry of the JSON output.
type outdatedJSON struct {
	model.OutdatedPackage
	Update model.UpdateKind `json:"update"`
}

// runOutdated is the main logic function for the outdated command.
func runOutdated(ctx context.Context, cmd *cobra.Command, flags *outdatedFlags) error {
	s, err := openSession(ctx, cmd, sessionOptions{network: true})
	if err != nil {
		return err
	}
	defer s.Close()

	outdated, err := s.client.Outdated(ctx)
	if err != nil {
		return err
	}

	upgraded := 0
	if flags.upgrade && len(outdated) > 0 {
		names := make([]string, 0, len(outdated))
		for _, p := range outdated {
			names = append(names, p.Name)
		}
		t := shell.NewTracker(reporter(), "Updating packages", true)
		upgraded, err = s.client.Upgrade(ctx, names, t.Observe)
		t.Finish(err)
		if err != nil {
			return err
		}
	}

	if IsJSONOutput() {
		type resultJSON struct {
			Outdated []outdatedJSON `json:"outdated"`
			Upgraded int            `json:"upgraded"`
		}
		result := resultJSON{Outdated: make([]outdatedJSON, 0, len(outdated)), Upgraded: upgraded}
		for _, p := range outdated {
			result.Outdated = append(result.Outdated, outdatedJSON{OutdatedPackage: p, Update: p.UpdateKind()})
		}
		printJSON(cmd, result)
		return nil
	}

	out := cmd.OutOrStdout()
	if len(outdated) == 0 {
		fmt.Fprintln(out, "All packages are up to date.")
		return nil
	}
	shell.PrintOutdated(out, outdated)
	if flags.upgrade {
		fmt.Fprintf(out, "%d package(s) updated successfully.\n", upgraded)
	}
	return nil
}
