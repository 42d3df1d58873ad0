// Package pyruntime locates a Python interpreter on the host and, where the
// platform allows it, installs one.
//
// Detection probes a short list of well-known launcher names with
// `--version` through an execx.Runner. Installation downloads the official
// python.org installer and runs it unattended, which is only possible on
// Windows; elsewhere the user is pointed at the system package manager.
package pyruntime

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/shinji-kodama/penv/internal/execx"
	"github.com/shinji-kodama/penv/internal/model"
)

// DefaultMinVersion is the oldest interpreter penv accepts. 3.8 is the
// oldest release whose bundled venv module still ships a working pip.
const DefaultMinVersion = "3.8"

// Interpreter is a Python executable found on the host.
type Interpreter struct {
	// Path is the command used to invoke it (a bare name resolved via PATH
	// or an absolute path).
	Path string

	// Version is the release reported by `--version`, e.g. "3.12.1".
	Version string
}

// AtLeast reports whether the interpreter version is >= min. Both are plain
// release numbers ("3.8", "3.10.6"). Unparseable versions never satisfy.
func (i Interpreter) AtLeast(min string) bool {
	have, want := model.CanonicalSemver(i.Version), model.CanonicalSemver(min)
	if have == "" || want == "" {
		return false
	}
	return semver.Compare(have, want) >= 0
}

// String returns "path (Python X.Y.Z)".
func (i Interpreter) String() string {
	return fmt.Sprintf("%s (Python %s)", i.Path, i.Version)
}

// versionRegex extracts the release from `python --version` output.
// Suffixes such as "3.13.0rc1" or "3.12.1+" are dropped.
var versionRegex = regexp.MustCompile(`Python\s+(\d+\.\d+(?:\.\d+)?)`)

// ParseVersion returns the release number from `python --version` output.
// Python 2 prints the banner to stderr, Python 3 to stdout, so callers pass
// both streams concatenated.
func ParseVersion(output string) (string, bool) {
	m := versionRegex.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Detector finds a usable interpreter.
type Detector struct {
	runner     execx.Runner
	candidates []string
	minVersion string
}

// NewDetector creates a Detector. When preferred is non-empty it is the only
// candidate probed; otherwise platform defaults are used. minVersion may be
// empty to accept any Python 3.
func NewDetector(runner execx.Runner, preferred, minVersion string) *Detector {
	candidates := DefaultCandidates(runtime.GOOS)
	if preferred != "" {
		candidates = []string{preferred}
	}
	if minVersion == "" {
		minVersion = "3"
	}
	return &Detector{runner: runner, candidates: candidates, minVersion: minVersion}
}

// DefaultCandidates lists launcher names to probe, most specific first.
// On Windows "python3" is often the Microsoft Store stub, so "python" and
// the "py" launcher come first.
func DefaultCandidates(goos string) []string {
	if goos == "windows" {
		return []string{"python", "py", "python3"}
	}
	return []string{"python3", "python"}
}

// Detect returns the first candidate that runs and satisfies the minimum
// version. Candidates that exist but are too old are remembered so the error
// message can say so.
func (d *Detector) Detect(ctx context.Context) (*Interpreter, error) {
	var tooOld []string

	for _, name := range d.candidates {
		res, err := d.runner.Run(ctx, execx.Command{Name: name, Args: []string{"--version"}})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Missing launcher or a Store stub that exits non-zero.
			continue
		}

		version, ok := ParseVersion(res.Stdout + res.Stderr)
		if !ok {
			continue
		}

		interp := &Interpreter{Path: name, Version: version}
		if !interp.AtLeast(d.minVersion) {
			tooOld = append(tooOld, interp.String())
			continue
		}
		return interp, nil
	}

	if len(tooOld) > 0 {
		return nil, model.NewCLIError(model.ExitRuntimeMissing,
			fmt.Sprintf("Python >= %s is required, found only %s", d.minVersion, strings.Join(tooOld, ", ")))
	}
	return nil, model.WrapCLIError(model.ExitRuntimeMissing,
		fmt.Sprintf("no Python interpreter found (tried %s)", strings.Join(d.candidates, ", ")),
		ErrNotInstalled)
}

// ErrNotInstalled is wrapped by Detect when no candidate could be run.
var ErrNotInstalled = errors.New("python is not installed")
