// Package model defines the value types shared by the penv CLI.
//
// Nothing here is persisted by penv itself. Packages, outdated entries and
// requirements are transient views parsed from the package manager's output
// or from a requirements file; the virtual environment on disk stays opaque.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
