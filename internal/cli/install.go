// Package cli: install.go implements the "penv install" command.
//
// Packages already present in the environment are skipped, exactly as in
// the interactive menu. With -r the packages come from a requirements.txt
// or pyproject.toml file.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/pip"
	"github.com/shinji-kodama/penv/internal/shell"
)

// installFlags holds the flag values for the install command.
type installFlags struct {
	// requirementsFile installs from a file instead of arguments.
	requirementsFile string
}

// NewInstallCommand creates the "install" cobra command.
func NewInstallCommand() *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install [package...]",
		Short: "Install packages into the virtual environment",
		Long: `Install one or more packages, or every package of a requirements file.

The environment is created first when it does not exist.

Examples:
  penv install requests
  penv install "django>=4.2" rich
  penv install -r requirements.txt
  penv install -r pyproject.toml --json`,

		Args: func(cmd *cobra.Command, args []string) error {
			if flags.requirementsFile == "" && len(args) == 0 {
				return model.NewCLIError(model.ExitGeneralError, "specify at least one package or -r <file>")
			}
			if flags.requirementsFile != "" && len(args) > 0 {
				return model.NewCLIError(model.ExitGeneralError, "packages and -r cannot be combined")
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.requirementsFile, "requirement", "r", "",
		"Install from the given requirements.txt or pyproject.toml")

	return cmd
}

// installResult is the outcome reported by the install command.
type installResult struct {
	Installed  []string `json:"installed"`
	Skipped    []string `json:"skipped"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// runInstall is the main logic function for the install command.
func runInstall(ctx context.Context, cmd *cobra.Command, flags *installFlags, packages []string) error {
	s, err := openSession(ctx, cmd, sessionOptions{network: true, create: true})
	if err != nil {
		return err
	}
	defer s.Close()

	result := installResult{Installed: []string{}, Skipped: []string{}}

	if flags.requirementsFile != "" {
		VerboseLog("Installing from %s", flags.requirementsFile)
		t := shell.NewTracker(reporter(), "Installing packages", false)
		report, err := s.client.InstallRequirements(ctx, flags.requirementsFile, t.Observe)
		t.Finish(err)
		if report != nil {
			result.Installed = append(result.Installed, report.Installed...)
			result.Skipped = append(result.Skipped, report.Present...)
			result.Unresolved = report.Unresolved
		}
		if err != nil {
			return err
		}
		printInstallResult(cmd, result)
		return nil
	}

	for _, name := range packages {
		t := shell.NewTracker(reporter(), "Installing "+name, false)
		err := s.client.Install(ctx, name, t.Observe)
		t.Finish(err)
		switch {
		case errors.Is(err, pip.ErrAlreadyInstalled):
			result.Skipped = append(result.Skipped, name)
		case err != nil:
			return err
		default:
			result.Installed = append(result.Installed, name)
		}
	}

	printInstallResult(cmd, result)
	return nil
}

// printInstallResult outputs the install result in text or JSON format.
func printInstallResult(cmd *cobra.Command, result installResult) {
	if IsJSONOutput() {
		printJSON(cmd, result)
		return
	}

	out := cmd.OutOrStdout()
	for _, name := range result.Skipped {
		fmt.Fprintf(out, "%s (skipped, already installed)\n", name)
	}
	if len(result.Installed) == 0 && len(result.Unresolved) == 0 {
		fmt.Fprintln(out, "Nothing to install.")
		return
	}
	for _, name := range result.Installed {
		fmt.Fprintf(out, "Installed %s\n", name)
	}
	for _, entry := range result.Unresolved {
		fmt.Fprintf(out, "Installed %s (resolved by pip)\n", entry)
	}
}
