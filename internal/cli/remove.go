// Package cli: remove.go implements the "penv remove" command.
//
// Removing everything (--all) asks for confirmation unless --yes is given,
// following the same y/N convention as the interactive menu.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/shell"
)

// removeFlags holds the flag values for the remove command.
type removeFlags struct {
	// all removes every installed package.
	all bool

	// yes skips the confirmation prompt of --all.
	yes bool
}

// NewRemoveCommand creates the "remove" cobra command.
func NewRemoveCommand() *cobra.Command {
	flags := &removeFlags{}

	cmd := &cobra.Command{
		Use:     "remove [package...]",
		Aliases: []string{"uninstall", "rm"},
		Short:   "Remove packages from the virtual environment",
		Long: `Remove packages from the virtual environment.

Examples:
  penv remove requests
  penv remove --all
  penv remove --all --yes --json`,

		Args: func(cmd *cobra.Command, args []string) error {
			if !flags.all && len(args) == 0 {
				return model.NewCLIError(model.ExitGeneralError, "specify at least one package or --all")
			}
			if flags.all && len(args) > 0 {
				return model.NewCLIError(model.ExitGeneralError, "packages and --all cannot be combined")
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.Context(), cmd, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false, "Remove all installed packages")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

// removeResult is the outcome reported by the remove command.
type removeResult struct {
	Removed int `json:"removed"`
}

// runRemove is the main logic function for the remove command.
//
// The process follows these steps:
//  1. Open the existing environment (it is never created here)
//  2. Confirm --all unless --yes
//  3. Uninstall each package
func runRemove(ctx context.Context, cmd *cobra.Command, flags *removeFlags, packages []string) error {
	// Step 1: Open the environment.
	s, err := openSession(ctx, cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if flags.all {
		// Step 2: Confirm.
		if !flags.yes {
			confirmed, err := s.prompt.Confirm(ctx, fmt.Sprintf("Remove all packages from %s? [y/N] ", s.venvDir))
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
			}
			if !confirmed {
				return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
			}
		}

		// Step 3: Uninstall everything.
		t := shell.NewTracker(reporter(), "Removing packages", true)
		removed, err := s.client.UninstallAll(ctx, t.Observe)
		t.Finish(err)
		if err != nil {
			return err
		}
		printRemoveResult(cmd, removeResult{Removed: removed})
		return nil
	}

	// Step 3: Uninstall the named packages.
	result := removeResult{}
	for _, name := range packages {
		VerboseLog("Removing %s", name)
		t := shell.NewTracker(reporter(), "Removing "+name, false)
		err := s.client.Uninstall(ctx, name, t.Observe)
		t.Finish(err)
		if err != nil {
			return err
		}
		result.Removed++
	}
	printRemoveResult(cmd, result)
	return nil
}

// printRemoveResult outputs the remove command result in text or JSON format.
func printRemoveResult(cmd *cobra.Command, result removeResult) {
	if IsJSONOutput() {
		printJSON(cmd, result)
		return
	}
	if result.Removed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages to remove.")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d package(s).\n", result.Removed)
}
