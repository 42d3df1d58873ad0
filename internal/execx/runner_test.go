package execx

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireShell skips the test when /bin/sh is not available (e.g. Windows).
func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommand_String(t *testing.T) {
	c := Command{Name: "python", Args: []string{"-m", "pip", "install", "my pkg"}}
	assert.Equal(t, "python -m pip install 'my pkg'", c.String())
}

// TestExecRunner_Stream verifies that stdout lines are forwarded in order
// and that the full output is still returned.
func TestExecRunner_Stream(t *testing.T) {
	requireShell(t)
	r := NewExecRunner()

	var lines []string
	res, err := r.Stream(context.Background(),
		Command{Name: "sh", Args: []string{"-c", "echo Collecting a; echo Collecting b"}},
		func(line string) { lines = append(lines, line) })

	require.NoError(t, err)
	assert.Equal(t, []string{"Collecting a", "Collecting b"}, lines)
	assert.Equal(t, "Collecting a\nCollecting b\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
}

// TestExecRunner_NonZeroExit checks that a failing command yields an
// *ExitError carrying the exit code and stderr.
func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	r := NewExecRunner()

	res, err := r.Run(context.Background(),
		Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %v", err)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, exitErr.Stderr, "boom")
}

// TestExecRunner_OverlongLine checks that a line too long to scan is
// reported as an error while the rest of the output is drained, so the
// child can finish instead of blocking on a full pipe.
func TestExecRunner_OverlongLine(t *testing.T) {
	requireShell(t)
	for _, tool := range []string{"head", "tr"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r := NewExecRunner()
	res, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c",
		"head -c 3000000 /dev/zero | tr '\\0' a; echo; echo done"}})

	require.NoError(t, ctx.Err(), "command must not hang")
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunner_NotFound(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), Command{Name: "penv-definitely-not-a-program"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecRunner_Dir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	r := NewExecRunner()

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd -P"}, Dir: dir})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Stdout)
}

func TestDescribe(t *testing.T) {
	c := Command{Name: "python", Args: []string{"-m", "pip", "install", "nope"}}

	err := &ExitError{Code: 1, Stderr: "Traceback...\n\nERROR: No matching distribution found for nope\n"}
	assert.Equal(t, "python -m pip install nope failed: ERROR: No matching distribution found for nope", Describe(c, err))

	assert.Equal(t, "python -m pip install nope failed", Describe(c, errors.New("killed")))
}
