package venv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/penv/internal/execx"
	"github.com/shinji-kodama/penv/internal/execx/exectest"
	"github.com/shinji-kodama/penv/internal/model"
)

// TestPythonPathFor verifies the per-platform interpreter location.
func TestPythonPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("venv", "bin", "python"), PythonPathFor("linux", "venv"))
	assert.Equal(t, filepath.Join("venv", "bin", "python"), PythonPathFor("darwin", "venv"))
	assert.Equal(t, filepath.Join("venv", "Scripts", "python.exe"), PythonPathFor("windows", "venv"))
}

func TestExists(t *testing.T) {
	m := NewManager(exectest.NewRecorder(), "python3")
	m.goos = "linux"

	t.Run("missing directory", func(t *testing.T) {
		assert.False(t, m.Exists(filepath.Join(t.TempDir(), "venv")))
	})

	t.Run("empty directory", func(t *testing.T) {
		assert.False(t, m.Exists(t.TempDir()))
	})

	t.Run("pyvenv.cfg present", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0644))
		assert.True(t, m.Exists(dir))
	})

	t.Run("interpreter present", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "python"), nil, 0755))
		assert.True(t, m.Exists(dir))
	})
}

// TestEnsure_Creates checks that a missing environment is created with the
// base interpreter's venv module.
func TestEnsure_Creates(t *testing.T) {
	rec := exectest.NewRecorder()
	m := NewManager(rec, "python3")
	t.Chdir(t.TempDir())

	created, err := m.Ensure(context.Background(), "venv")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"python3 -m venv venv"}, rec.Argv())
}

// TestEnsure_Existing checks that nothing runs when the environment exists.
func TestEnsure_Existing(t *testing.T) {
	rec := exectest.NewRecorder()
	m := NewManager(rec, "python3")
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll("venv", 0755))
	require.NoError(t, os.WriteFile(filepath.Join("venv", "pyvenv.cfg"), nil, 0644))

	created, err := m.Ensure(context.Background(), "venv")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, rec.Calls())
}

func TestEnsure_FileInTheWay(t *testing.T) {
	rec := exectest.NewRecorder()
	m := NewManager(rec, "python3")
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("venv", []byte("not a dir"), 0644))

	_, err := m.Ensure(context.Background(), "venv")

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitVenvError, cliErr.Code)
	assert.Empty(t, rec.Calls())
}

// TestEnsure_InvalidName checks that names leaving the working directory
// are refused before anything runs.
func TestEnsure_InvalidName(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, name := range []string{"bad name", "../outside", "/tmp/abs-venv", "sub/dir", "."} {
		t.Run(name, func(t *testing.T) {
			rec := exectest.NewRecorder()
			m := NewManager(rec, "python3")

			_, err := m.Ensure(context.Background(), name)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitVenvError, cliErr.Code)
			assert.Empty(t, rec.Calls())
		})
	}
}

// TestCreate_Failure verifies that a failing venv module surfaces stderr
// in the error message.
func TestCreate_Failure(t *testing.T) {
	rec := exectest.NewRecorder()
	rec.OnArgs(exectest.Response{
		ExitCode: 1,
		Stderr:   "Error: Command '['/tmp/venv/bin/python', '-m', 'ensurepip']' returned non-zero exit status 1.\n",
	}, "-m", "venv")
	m := NewManager(rec, "python3")

	err := m.Create(context.Background(), "venv")

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitVenvError, cliErr.Code)
	assert.Contains(t, err.Error(), "ensurepip")

	var exitErr *execx.ExitError
	assert.True(t, errors.As(err, &exitErr))
}
