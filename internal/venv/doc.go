// Package venv manages the project-local Python virtual environment.
//
// Environments are created with the interpreter's own `-m venv` module
// rather than by copying files, so the layout is exactly what the user's
// Python version produces. penv only needs to know where the environment's
// interpreter lives, which differs between Windows (Scripts\python.exe)
// and everything else (bin/python).
package venv
