package pip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shinji-kodama/penv/internal/execx"
	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/requirements"
)

// ErrAlreadyInstalled is returned by Install when the package is present.
var ErrAlreadyInstalled = errors.New("already installed")

// Client runs pip for one virtual environment.
type Client struct {
	runner execx.Runner

	// python is the interpreter inside the environment.
	python string
}

// NewClient returns a Client that runs `<python> -m pip`.
func NewClient(runner execx.Runner, python string) *Client {
	return &Client{runner: runner, python: python}
}

// Python returns the interpreter the client invokes.
func (c *Client) Python() string {
	return c.python
}

func (c *Client) command(args ...string) execx.Command {
	return execx.Command{Name: c.python, Args: append([]string{"-m", "pip"}, args...)}
}

// runPip executes pip with the given arguments and returns stdout.
// Failures are wrapped as CLIError(ExitPipError) carrying pip's last
// stderr line, so the menu can print them and carry on.
func (c *Client) runPip(ctx context.Context, args ...string) (string, error) {
	cmd := c.command(args...)
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return "", model.WrapCLIError(model.ExitPipError, execx.Describe(cmd, err), err)
	}
	return res.Stdout, nil
}

// streamPip is runPip with stdout lines translated into events.
func (c *Client) streamPip(ctx context.Context, obs Observer, args ...string) error {
	cmd := c.command(args...)
	_, err := c.runner.Stream(ctx, cmd, func(line string) {
		if ev, ok := ParseEvent(line); ok {
			obs.emit(ev)
		}
	})
	if err != nil {
		return model.WrapCLIError(model.ExitPipError, execx.Describe(cmd, err), err)
	}
	return nil
}

// listEntry mirrors one element of `pip list --format=json`.
type listEntry struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	LatestVersion  string `json:"latest_version"`
	LatestFiletype string `json:"latest_filetype"`
}

func decodeList(out string) ([]listEntry, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	var entries []listEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		return nil, model.WrapCLIError(model.ExitPipError, "failed to parse pip list output", err)
	}
	return entries, nil
}

// List returns the packages installed in the environment.
func (c *Client) List(ctx context.Context) ([]model.Package, error) {
	out, err := c.runPip(ctx, "list", "--format=json")
	if err != nil {
		return nil, err
	}
	entries, err := decodeList(out)
	if err != nil {
		return nil, err
	}

	pkgs := make([]model.Package, 0, len(entries))
	for _, e := range entries {
		pkgs = append(pkgs, model.Package{Name: e.Name, Version: e.Version})
	}
	return pkgs, nil
}

// IsInstalled reports whether name (compared after normalization) is
// installed.
func (c *Client) IsInstalled(ctx context.Context, name string) (bool, error) {
	pkgs, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	return model.NewPackageSet(pkgs).Has(name), nil
}

// Install installs a single package. A package that is already present is
// not reinstalled; ErrAlreadyInstalled is returned instead.
func (c *Client) Install(ctx context.Context, name string, obs Observer) error {
	installed, err := c.IsInstalled(ctx, name)
	if err != nil {
		return err
	}
	if installed {
		return fmt.Errorf("%s: %w", name, ErrAlreadyInstalled)
	}
	return c.streamPip(ctx, obs, "install", name)
}

// InstallReport describes what InstallRequirements did.
type InstallReport struct {
	// Present lists requirements that were already installed.
	Present []string

	// Installed lists requirements handed to pip.
	Installed []string

	// Unresolved lists file entries pip was given whose package names are
	// only known to pip: nested -r files, editables, URLs and paths.
	Unresolved []string
}

// NothingToInstall reports whether every requirement was already present
// and pip was not run.
func (r *InstallReport) NothingToInstall() bool {
	return len(r.Installed) == 0 && len(r.Unresolved) == 0
}

// InstallRequirements installs the packages named in a requirements.txt
// or pyproject.toml file. Requirements already present are reported and
// skipped; if nothing is left pip is not run at all. Entries whose names
// cannot be checked up front always send the file to pip.
//
// For requirements.txt pip is given the file itself (`install -r`), so
// options such as --index-url and nested files inside it are honored.
// pyproject.toml dependencies are passed as arguments, markers and direct
// references included.
func (c *Client) InstallRequirements(ctx context.Context, path string, obs Observer) (*InstallReport, error) {
	file, err := requirements.LoadFile(path)
	if err != nil {
		return nil, err
	}

	pkgs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	set := model.NewPackageSet(pkgs)

	report := &InstallReport{Unresolved: file.Unresolved}
	var pending []model.Requirement
	for _, r := range file.Requirements {
		if set.Has(r.Name) {
			report.Present = append(report.Present, r.Name)
			continue
		}
		report.Installed = append(report.Installed, r.Name)
		pending = append(pending, r)
	}

	if report.NothingToInstall() {
		return report, nil
	}

	obs.emit(Event{Kind: EventBatchStart, Total: len(pending) + len(file.Unresolved)})

	args := []string{"install"}
	if requirements.IsPyProject(path) {
		for _, r := range pending {
			args = append(args, r.String())
		}
		args = append(args, file.Unresolved...)
	} else {
		args = append(args, "-r", path)
	}
	if err := c.streamPip(ctx, obs, args...); err != nil {
		return report, err
	}
	return report, nil
}

// Uninstall removes a single package without prompting.
func (c *Client) Uninstall(ctx context.Context, name string, obs Observer) error {
	return c.streamPip(ctx, obs, "uninstall", "-y", name)
}

// UninstallAll removes every package reported by `pip freeze`, one pip
// invocation per package. It keeps going after a failure and returns the
// number removed together with the first error.
func (c *Client) UninstallAll(ctx context.Context, obs Observer) (int, error) {
	pkgs, err := c.FreezePackages(ctx)
	if err != nil {
		return 0, err
	}

	obs.emit(Event{Kind: EventBatchStart, Total: len(pkgs)})

	removed := 0
	var firstErr error
	for _, p := range pkgs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		err := c.Uninstall(ctx, p.Name, obs)
		obs.emit(Event{Kind: EventItemDone, Package: p.Name, Err: err})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// Freeze returns `pip freeze` output verbatim.
func (c *Client) Freeze(ctx context.Context) (string, error) {
	return c.runPip(ctx, "freeze")
}

// FreezePackages returns the packages listed by `pip freeze`. Editable
// installs (-e) are skipped; direct references ("name @ url") keep their
// name with an empty version.
func (c *Client) FreezePackages(ctx context.Context) ([]model.Package, error) {
	out, err := c.Freeze(ctx)
	if err != nil {
		return nil, err
	}
	return ParseFreeze(out), nil
}

// ParseFreeze parses `pip freeze` output into packages.
func ParseFreeze(out string) []model.Package {
	var pkgs []model.Package
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name, _, ok := strings.Cut(line, " @ "); ok {
			pkgs = append(pkgs, model.Package{Name: strings.TrimSpace(name)})
			continue
		}
		name, version, _ := strings.Cut(line, "==")
		pkgs = append(pkgs, model.Package{Name: name, Version: version})
	}
	return pkgs
}

// Outdated returns the packages with a newer release on the index.
func (c *Client) Outdated(ctx context.Context) ([]model.OutdatedPackage, error) {
	out, err := c.runPip(ctx, "list", "--outdated", "--format=json")
	if err != nil {
		return nil, err
	}
	entries, err := decodeList(out)
	if err != nil {
		return nil, err
	}

	pkgs := make([]model.OutdatedPackage, 0, len(entries))
	for _, e := range entries {
		pkgs = append(pkgs, model.OutdatedPackage{
			Name:           e.Name,
			Version:        e.Version,
			LatestVersion:  e.LatestVersion,
			LatestFiletype: e.LatestFiletype,
		})
	}
	return pkgs, nil
}

// Upgrade runs `pip install --upgrade` once per name. Like UninstallAll
// it continues past failures and returns the first error.
func (c *Client) Upgrade(ctx context.Context, names []string, obs Observer) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	obs.emit(Event{Kind: EventBatchStart, Total: len(names)})

	upgraded := 0
	var firstErr error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return upgraded, err
		}
		err := c.streamPip(ctx, obs, "install", "--upgrade", name)
		obs.emit(Event{Kind: EventItemDone, Package: name, Err: err})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		upgraded++
	}
	return upgraded, firstErr
}
