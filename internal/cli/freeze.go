// Package cli: freeze.go implements the "penv freeze" command.
//
// Without -o the output of pip freeze is printed; with -o it is written to
// a requirements file in pip's native format.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/pip"
	"github.com/shinji-kodama/penv/internal/requirements"
)

// freezeFlags holds the flag values for the freeze command.
type freezeFlags struct {
	// output is the requirements file to write. Empty prints to stdout.
	output string
}

// NewFreezeCommand creates the "freeze" cobra command.
func NewFreezeCommand() *cobra.Command {
	flags := &freezeFlags{}

	cmd := &cobra.Command{
		Use:   "freeze",
		Short: "Print or save the installed packages as requirements",
		Long: `Print the installed packages in requirements format, or write them to a file.

Examples:
  penv freeze
  penv freeze -o requirements.txt`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreeze(cmd.Context(), cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "",
		fmt.Sprintf("Write to this file (e.g. %s) instead of stdout", requirements.DefaultFile))

	return cmd
}

// freezeResult is the JSON output of the freeze command.
type freezeResult struct {
	File     string          `json:"file,omitempty"`
	Packages []model.Package `json:"packages"`
}

// runFreeze is the main logic function for the freeze command.
func runFreeze(ctx context.Context, cmd *cobra.Command, flags *freezeFlags) error {
	s, err := openSession(ctx, cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.client.Freeze(ctx)
	if err != nil {
		return err
	}

	if flags.output != "" {
		if err := requirements.Write(flags.output, out); err != nil {
			return err
		}
		VerboseLog("Wrote %s", flags.output)
	}

	if IsJSONOutput() {
		result := freezeResult{File: flags.output, Packages: []model.Package{}}
		result.Packages = append(result.Packages, pip.ParseFreeze(out)...)
		printJSON(cmd, result)
		return nil
	}

	if flags.output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s created successfully.\n", flags.output)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
