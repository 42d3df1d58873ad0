// Package execx runs external programs for the penv CLI.
//
// Every interaction with the Python toolchain (interpreter probes, venv
// creation, pip) goes through the Runner interface defined here. The
// production implementation shells out with os/exec; tests substitute the
// exectest.Recorder so that command lines can be asserted without a Python
// installation.
package execx
