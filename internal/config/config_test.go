package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/penv/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("penv", pflag.ContinueOnError)
	fs.String("venv", "", "")
	fs.String("python", "", "")
	fs.Bool("offline", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, path, err := Load(LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".penv.yaml"), `
venv: .venv
min_python: "3.10"
connectivity_timeout: 2s
check_updates_on_start: false
`)

	cfg, path, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".penv.yaml"), path)
	assert.Equal(t, ".venv", cfg.Venv)
	assert.Equal(t, "3.10", cfg.MinPython)
	assert.Equal(t, 2*time.Second, cfg.ConnectivityTimeout)
	assert.False(t, cfg.CheckUpdatesOnStart)
	// Untouched keys keep their defaults.
	assert.Equal(t, "requirements.txt", cfg.RequirementsFile)
}

// TestLoad_JSONC verifies that comments and trailing commas are accepted
// in .penv.json.
func TestLoad_JSONC(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".penv.json"), `{
  // local interpreter
  "python": "/usr/local/bin/python3.12",
  "offline": true, /* no probe */
}`)

	cfg, _, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/python3.12", cfg.Python)
	assert.True(t, cfg.Offline)
}

func TestLoad_SearchOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".penv.yml"), "venv: from-yml\n")
	writeFile(t, filepath.Join(dir, ".penv.json"), `{"venv": "from-json"}`)

	cfg, path, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "from-yml", cfg.Venv)
	assert.Equal(t, ".penv.yml", filepath.Base(path))
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, _, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".penv.yaml"), "venv: [unclosed\n")

	_, _, err := Load(LoadOptions{Dir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

// TestLoad_Precedence checks file < env < explicitly set flag.
func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".penv.yaml"), "venv: file-venv\npython: file-python\noffline: false\n")
	t.Setenv("PENV_VENV", "env-venv")
	t.Setenv("PENV_PYTHON", "env-python")

	cfg, _, err := Load(LoadOptions{Dir: dir, Flags: newFlags(t, "--venv", "flag-venv")})
	require.NoError(t, err)

	assert.Equal(t, "flag-venv", cfg.Venv, "a set flag wins over env")
	assert.Equal(t, "env-python", cfg.Python, "env wins over file")
	assert.False(t, cfg.Offline, "an unset flag does not override the file")
}

func TestLoad_EnvBool(t *testing.T) {
	t.Setenv("PENV_OFFLINE", "true")
	cfg, _, err := Load(LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, cfg.Offline)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad venv", func(c *Config) { c.Venv = "my env" }, "venv"},
		{"venv outside working directory", func(c *Config) { c.Venv = "../../elsewhere" }, "venv"},
		{"absolute venv", func(c *Config) { c.Venv = "/tmp/abs-venv" }, "venv"},
		{"bad min_python", func(c *Config) { c.MinPython = "three" }, "min_python"},
		{"bad install_version", func(c *Config) { c.InstallVersion = "" }, "install_version"},
		{"zero timeout", func(c *Config) { c.ConnectivityTimeout = 0 }, "connectivity_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

// TestWriteFile_RoundTrip writes the defaults with config init semantics
// and loads them back.
func TestWriteFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	want := Default()
	want.Venv = ".venv"
	want.ConnectivityTimeout = 3 * time.Second
	require.NoError(t, WriteFile(path, want, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "connectivity_timeout: 3s")

	got, _, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteFile_NoClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	writeFile(t, path, "venv: keep\n")

	err := WriteFile(path, Default(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, WriteFile(path, Default(), true))
}
