// Package cli: list.go implements the "penv list" command.
//
// The list command prints the packages installed in the virtual
// environment as a text table or JSON array, depending on the --json flag.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/shell"
)

// NewListCommand creates the "list" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long: `List the packages installed in the virtual environment.

Examples:
  penv list
  penv list --venv .venv --json`,

		// No positional arguments are required for the list command.
		Args: cobra.NoArgs,

		// RunE returns an error to the root command's error handler.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd)
		},
	}

	return cmd
}

// runList is the main logic function for the list command.
func runList(ctx context.Context, cmd *cobra.Command) error {
	s, err := openSession(ctx, cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	pkgs, err := s.client.List(ctx)
	if err != nil {
		return err
	}

	printListResult(cmd, pkgs)
	return nil
}

// printListResult outputs the package list in text or JSON format,
// depending on the global --json flag.
func printListResult(cmd *cobra.Command, pkgs []model.Package) {
	if IsJSONOutput() {
		type resultJSON struct {
			Packages []model.Package `json:"packages"`
		}
		// Use an empty slice instead of nil to ensure JSON output shows []
		// instead of null when nothing is installed.
		result := resultJSON{Packages: make([]model.Package, 0, len(pkgs))}
		result.Packages = append(result.Packages, pkgs...)
		printJSON(cmd, result)
		return
	}

	shell.PrintPackages(cmd.OutOrStdout(), pkgs)
}
