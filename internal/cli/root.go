// Package cli implements the cobra-based CLI commands for penv.
//
// Running penv without a subcommand opens the interactive menu. The same
// package operations are available as subcommands (install, remove, list,
// freeze, outdated) for scripts, each defined in its own file within this
// package. This file defines the root command, global flags and the error
// to exit code mapping.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/penv/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose enables debug logging, including every command penv runs.
	verbose bool

	// configFile is an explicit config file path (--config).
	configFile string
)

// logger is the process-wide logger. Info messages mirror what the user
// would otherwise see as progress notes; --verbose lowers the level to
// debug.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "penv"})

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// Without a subcommand the root command runs the interactive menu.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "penv",
		Short: "Interactive Python virtual environment and package manager",
		Long: `penv prepares a Python virtual environment in the current directory and
manages its packages through a numbered menu.

If no Python interpreter is found it is installed (Windows), the environment
is created on first use, and packages are installed, removed, listed, frozen
to requirements.txt and updated with pip.

The same operations are available as subcommands for scripting.`,

		Args: cobra.NoArgs,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			} else {
				logger.SetLevel(log.InfoLevel)
			}
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), cmd)
		},
	}

	// PersistentFlags are inherited by all subcommands. This is the cobra
	// mechanism for global flags: any flag defined here is automatically
	// available in every subcommand without re-declaration.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: .penv.yaml, .penv.yml or .penv.json in the current directory)")

	// These three are read through the config layer, which only honors
	// them when set explicitly.
	rootCmd.PersistentFlags().String("venv", "", "Virtual environment directory (skips the name prompt)")
	rootCmd.PersistentFlags().String("python", "", "Base Python interpreter used to create the environment")
	rootCmd.PersistentFlags().Bool("offline", false, "Skip the internet connectivity check")

	// Register subcommands. Each subcommand is defined in its own file
	// (install.go, list.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewFreezeCommand())
	rootCmd.AddCommand(NewOutdatedCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// Ctrl-C cancels the context of the running command, which stops the
// in-flight pip process. CLIError values carry their own exit codes;
// other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	os.Exit(int(exitCode(err)))
}

// exitCode prints err, if any, and returns the process exit code for it.
func exitCode(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(cliErr.Message, cliErr.Err)
		return cliErr.Code
	}

	if errors.Is(err, context.Canceled) {
		printError("interrupted", nil)
		return model.ExitUserCancelled
	}

	// Anything else exits with code 1.
	printError(err.Error(), nil)
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		logger.Error(message, "err", underlying)
	} else {
		logger.Error(message)
	}
}

// VerboseLog prints a debug message, visible only with --verbose.
func VerboseLog(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON to stdout.
func printJSON(cmd *cobra.Command, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}
