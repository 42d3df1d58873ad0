// Package pip drives the package manager inside a virtual environment.
//
// Every operation runs `<venv python> -m pip ...` through an execx.Runner.
// Invoking pip as a module of the environment's own interpreter (rather
// than a pip/pip3 script on PATH) guarantees the packages land in that
// environment regardless of PATH or activation state.
//
// Machine-readable output (`--format=json`) is used wherever pip offers it.
// Free-form output is only scanned line by line for progress events.
package pip
