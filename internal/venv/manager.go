package venv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shinji-kodama/penv/internal/execx"
	"github.com/shinji-kodama/penv/internal/model"
)

// DefaultName is the environment directory used when the user just presses
// enter at the name prompt.
const DefaultName = "venv"

// Manager creates and inspects virtual environments.
//
// It holds the base interpreter used for `python -m venv` and the runner
// through which that command is executed. The environment directory itself
// is passed per call so one Manager can serve several environments.
type Manager struct {
	runner execx.Runner
	python string
	goos   string
}

// NewManager creates a Manager that creates environments with the given
// base interpreter (e.g. "python3").
func NewManager(runner execx.Runner, python string) *Manager {
	return &Manager{runner: runner, python: python, goos: runtime.GOOS}
}

// PythonPath returns the path of the interpreter inside the environment
// at dir.
func (m *Manager) PythonPath(dir string) string {
	return PythonPathFor(m.goos, dir)
}

// PythonPathFor is PythonPath for an explicit GOOS.
func PythonPathFor(goos, dir string) string {
	if goos == "windows" {
		return filepath.Join(dir, "Scripts", "python.exe")
	}
	return filepath.Join(dir, "bin", "python")
}

// Exists reports whether dir looks like a virtual environment. A directory
// that exists but has neither pyvenv.cfg nor an interpreter is not one;
// Create would then populate it.
func (m *Manager) Exists(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "pyvenv.cfg")); err == nil {
		return true
	}
	info, err := os.Stat(m.PythonPath(dir))
	return err == nil && !info.IsDir()
}

// Create runs `<python> -m venv <dir>`.
func (m *Manager) Create(ctx context.Context, dir string) error {
	cmd := execx.Command{Name: m.python, Args: []string{"-m", "venv", dir}}
	if _, err := m.runner.Run(ctx, cmd); err != nil {
		return model.WrapCLIError(model.ExitVenvError, execx.Describe(cmd, err), err)
	}
	return nil
}

// Ensure creates the environment named dir in the working directory
// unless it already exists. dir must be a plain directory name; paths that
// would place the environment elsewhere are rejected. It reports whether a
// new environment was created.
func (m *Manager) Ensure(ctx context.Context, dir string) (bool, error) {
	if err := model.ValidateVenvName(dir); err != nil {
		return false, model.WrapCLIError(model.ExitVenvError, "invalid virtual environment", err)
	}

	if m.Exists(dir) {
		return false, nil
	}

	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return false, model.NewCLIError(model.ExitVenvError,
			fmt.Sprintf("%s exists and is not a directory", dir))
	}

	if err := m.Create(ctx, dir); err != nil {
		return false, err
	}
	return true, nil
}
