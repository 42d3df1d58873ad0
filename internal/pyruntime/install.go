package pyruntime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shinji-kodama/penv/internal/execx"
	"github.com/shinji-kodama/penv/internal/model"
)

const (
	// DefaultInstallVersion is the release installed when none is configured.
	DefaultInstallVersion = "3.10.6"

	// DefaultDownloadBaseURL is the python.org FTP mirror root.
	DefaultDownloadBaseURL = "https://www.python.org/ftp/python"

	// DefaultInstallDir is the TargetDir handed to the Windows installer.
	DefaultInstallDir = `C:\Python310`

	defaultDownloadTimeout = 10 * time.Minute
)

// Installer downloads and runs the official Windows installer.
type Installer struct {
	runner execx.Runner
	client *http.Client

	// BaseURL is the download root; the installer lives at
	// <BaseURL>/<Version>/python-<Version>-amd64.exe.
	BaseURL string

	// Version is the release to install, e.g. "3.10.6".
	Version string

	// TargetDir is where the installer puts Python.
	TargetDir string

	// GOOS overrides runtime.GOOS; tests set it to "windows".
	GOOS string

	// TempDir is where the installer is downloaded. Empty uses os.TempDir.
	TempDir string
}

// NewInstaller creates an Installer with defaults for any empty field.
func NewInstaller(runner execx.Runner, version, targetDir string) *Installer {
	if version == "" {
		version = DefaultInstallVersion
	}
	if targetDir == "" {
		targetDir = DefaultInstallDir
	}
	return &Installer{
		runner:    runner,
		client:    &http.Client{Timeout: defaultDownloadTimeout},
		BaseURL:   DefaultDownloadBaseURL,
		Version:   version,
		TargetDir: targetDir,
		GOOS:      runtime.GOOS,
	}
}

// WithHTTPClient replaces the download client.
func (in *Installer) WithHTTPClient(c *http.Client) *Installer {
	in.client = c
	return in
}

// InstallerName returns the installer file name for Version.
func (in *Installer) InstallerName() string {
	return fmt.Sprintf("python-%s-amd64.exe", in.Version)
}

// InstallerURL returns the full download URL.
func (in *Installer) InstallerURL() string {
	return fmt.Sprintf("%s/%s/%s", in.BaseURL, in.Version, in.InstallerName())
}

// InterpreterPath is python.exe inside TargetDir. The installer's PATH
// change only reaches new sessions, so the current process probes this
// path directly after installing.
func (in *Installer) InterpreterPath() string {
	return strings.TrimRight(in.TargetDir, `\/`) + `\python.exe`
}

// Supported reports whether unattended installation works on this platform.
func (in *Installer) Supported() bool {
	return in.GOOS == "windows"
}

// Install downloads the installer, runs it silently for all users with
// PATH registration, and deletes the downloaded file afterwards.
func (in *Installer) Install(ctx context.Context) error {
	if !in.Supported() {
		return model.NewCLIError(model.ExitRuntimeMissing,
			fmt.Sprintf("automatic Python installation is not supported on %s; install Python %s or newer with your system package manager",
				in.GOOS, DefaultMinVersion))
	}

	path, err := in.download(ctx)
	if err != nil {
		return model.WrapCLIError(model.ExitRuntimeMissing,
			fmt.Sprintf("failed to download %s", in.InstallerURL()), err)
	}
	defer func() { _ = os.Remove(path) }()

	cmd := execx.Command{
		Name: path,
		Args: []string{
			"/quiet",
			"InstallAllUsers=1",
			"PrependPath=1",
			"TargetDir=" + in.TargetDir,
		},
	}
	if _, err := in.runner.Run(ctx, cmd); err != nil {
		return model.WrapCLIError(model.ExitRuntimeMissing, execx.Describe(cmd, err), err)
	}
	return nil
}

// download streams the installer into a temp file and returns its path.
func (in *Installer) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.InstallerURL(), nil)
	if err != nil {
		return "", err
	}

	resp, err := in.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	f, err := os.CreateTemp(in.TempDir, "penv-*-"+in.InstallerName())
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
