package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/penv/internal/execx/exectest"
	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/pip"
)

const py = "venv/bin/python"

const installedJSON = `[{"name": "certifi", "version": "2024.2.2"}, {"name": "requests", "version": "2.31.0"}]`

const freezeOut = "certifi==2024.2.2\nrequests==2.31.0\n"

// newRecorder answers the read-only pip commands with a small environment
// containing certifi and requests.
func newRecorder() *exectest.Recorder {
	rec := exectest.NewRecorder()
	rec.OnArgs(exectest.Response{Stdout: installedJSON}, "list", "--format=json")
	rec.OnArgs(exectest.Response{Stdout: freezeOut}, "freeze")
	rec.OnArgs(exectest.Response{Stdout: `[{"name": "requests", "version": "2.31.0", "latest_version": "2.32.3", "latest_filetype": "wheel"}]`}, "--outdated")
	return rec
}

func newTestShell(t *testing.T, input string, rec *exectest.Recorder, opts Options) (*Shell, *bytes.Buffer) {
	t.Helper()
	if opts.RequirementsFile == "" {
		opts.RequirementsFile = filepath.Join(t.TempDir(), "requirements.txt")
	}
	out := &bytes.Buffer{}
	prompt := NewPrompter(strings.NewReader(input), out)
	t.Cleanup(func() { _ = prompt.Close() })
	sh := New(prompt, out, pip.NewClient(rec, py), opts)
	return sh, out
}

// TestShell_MenuOptions verifies that each menu choice runs the matching
// pip command with the expected arguments.
func TestShell_MenuOptions(t *testing.T) {
	reqFile := filepath.Join(t.TempDir(), "req.txt")
	require.NoError(t, os.WriteFile(reqFile, []byte("requests==2.31.0\nflask>=3\n"), 0644))

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "1 install",
			input: "1\nflask\n",
			want:  []string{py + " -m pip list --format=json", py + " -m pip install flask"},
		},
		{
			name:  "1 install already present",
			input: "1\nRequests\n",
			want:  []string{py + " -m pip list --format=json"},
		},
		{
			name:  "1 empty name",
			input: "1\n\n",
			want:  nil,
		},
		{
			name:  "2 remove",
			input: "2\nrequests\n",
			want:  []string{py + " -m pip uninstall -y requests"},
		},
		{
			name:  "3 remove all",
			input: "3\ny\n",
			want: []string{
				py + " -m pip freeze",
				py + " -m pip uninstall -y certifi",
				py + " -m pip uninstall -y requests",
			},
		},
		{
			name:  "3 remove all declined",
			input: "3\nn\n",
			want:  nil,
		},
		{
			name:  "4 install from file",
			input: "4\n" + reqFile + "\n",
			want:  []string{py + " -m pip list --format=json", py + " -m pip install -r " + reqFile},
		},
		{
			name:  "5 list",
			input: "5\n",
			want:  []string{py + " -m pip list --format=json"},
		},
		{
			name:  "6 generate requirements",
			input: "6\n",
			want:  []string{py + " -m pip freeze"},
		},
		{
			name:  "7 check updates and upgrade",
			input: "7\ny\n",
			want:  []string{py + " -m pip list --outdated --format=json", py + " -m pip install --upgrade requests"},
		},
		{
			name:  "7 check updates declined",
			input: "7\nn\n",
			want:  []string{py + " -m pip list --outdated --format=json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			sh, _ := newTestShell(t, tt.input+"q\n", rec, Options{})

			require.NoError(t, sh.Run(context.Background()))

			if diff := cmp.Diff(tt.want, rec.Argv(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("commands mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShell_ListOutput(t *testing.T) {
	sh, out := newTestShell(t, "5\n", newRecorder(), Options{})
	require.NoError(t, sh.Run(context.Background()))

	assert.Contains(t, out.String(), "PACKAGE")
	assert.Contains(t, out.String(), "certifi   2024.2.2")
	assert.Contains(t, out.String(), "requests  2.31.0")
}

func TestShell_GenerateRequirements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	sh, out := newTestShell(t, "6\n", newRecorder(), Options{RequirementsFile: path})
	require.NoError(t, sh.Run(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, freezeOut, string(data))
	assert.Contains(t, out.String(), "created successfully")
}

// TestShell_RequirementsRoundTrip generates a requirements file and then
// installs from it (accepting the default path): nothing is reinstalled.
func TestShell_RequirementsRoundTrip(t *testing.T) {
	rec := newRecorder()
	sh, out := newTestShell(t, "6\n4\n\n", rec, Options{})
	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, []string{
		py + " -m pip freeze",
		py + " -m pip list --format=json",
	}, rec.Argv())
	assert.Contains(t, out.String(), "certifi is already installed (skipping)")
	assert.Contains(t, out.String(), "requests is already installed (skipping)")
	assert.Contains(t, out.String(), "Nothing to install")
}

// TestShell_InstallFromNestedFile checks that a file including another one
// is handed to pip even when its named packages are all present.
func TestShell_InstallFromNestedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte("-r base.txt\nrequests\n"), 0644))

	rec := newRecorder()
	sh, out := newTestShell(t, "4\n"+path+"\n", rec, Options{})
	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, []string{
		py + " -m pip list --format=json",
		py + " -m pip install -r " + path,
	}, rec.Argv())
	assert.Contains(t, out.String(), "requests is already installed (skipping)")
	assert.Contains(t, out.String(), "Installed requirements from '"+path+"'.")
	assert.NotContains(t, out.String(), "Nothing to install")
}

func TestShell_InvalidChoice(t *testing.T) {
	rec := newRecorder()
	sh, out := newTestShell(t, "9\nabc\n\n8\nq\n", rec, Options{})

	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, 4, strings.Count(out.String(), "Invalid choice"))
	assert.Empty(t, rec.Calls())
}

func TestShell_ExitChoices(t *testing.T) {
	for _, in := range []string{"0\n", "q\n", "QUIT\n", "exit\n", ""} {
		t.Run(strings.TrimSpace(in), func(t *testing.T) {
			rec := newRecorder()
			sh, out := newTestShell(t, in+"5\n", rec, Options{})
			require.NoError(t, sh.Run(context.Background()))
			if in != "" {
				assert.Empty(t, rec.Calls(), "nothing after the exit choice may run")
			}
			assert.Contains(t, out.String(), "Goodbye")
		})
	}
}

func TestShell_EOF(t *testing.T) {
	sh, out := newTestShell(t, "", newRecorder(), Options{})
	require.NoError(t, sh.Run(context.Background()))
	assert.Contains(t, out.String(), "[1] Install a package")
	assert.Contains(t, out.String(), "[7] Check for updates")
}

// TestShell_ErrorContinues checks that a failing operation is reported and
// the loop keeps serving the next choice.
func TestShell_ErrorContinues(t *testing.T) {
	rec := exectest.NewRecorder()
	rec.OnArgs(exectest.Response{ExitCode: 1, Stderr: "ERROR: No matching distribution found for nosuchpkg\n"}, "install", "nosuchpkg")
	rec.OnArgs(exectest.Response{Stdout: installedJSON}, "list", "--format=json")

	sh, out := newTestShell(t, "1\nnosuchpkg\n5\nq\n", rec, Options{})
	require.NoError(t, sh.Run(context.Background()))

	assert.Contains(t, out.String(), "ERROR:")
	assert.Contains(t, out.String(), "No matching distribution found for nosuchpkg")
	assert.Equal(t, py+" -m pip list --format=json", rec.Argv()[len(rec.Argv())-1])
}

func TestShell_MissingRequirementsFile(t *testing.T) {
	rec := newRecorder()
	sh, out := newTestShell(t, "4\n/does/not/exist.txt\nq\n", rec, Options{})
	require.NoError(t, sh.Run(context.Background()))

	assert.Contains(t, out.String(), "'/does/not/exist.txt' not found")
	assert.Empty(t, rec.Calls())
}

func TestShell_CheckUpdatesOnStart(t *testing.T) {
	rec := newRecorder()
	sh, out := newTestShell(t, "n\nq\n", rec, Options{CheckUpdatesOnStart: true})
	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, []string{py + " -m pip list --outdated --format=json"}, rec.Argv())
	assert.Contains(t, out.String(), "Found 1 outdated package(s).")
	assert.Contains(t, out.String(), "minor")
}

func TestShell_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sh, _ := newTestShell(t, "5\n", newRecorder(), Options{})
	err := sh.Run(ctx)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitUserCancelled, cliErr.Code)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShell_RemoveAllProgress(t *testing.T) {
	sh, out := newTestShell(t, "3\nyes\n", newRecorder(), Options{})
	require.NoError(t, sh.Run(context.Background()))

	assert.Contains(t, out.String(), "Removing packages...\n  [1/2] certifi\n  [2/2] requests\nRemoving packages... done\n")
}
