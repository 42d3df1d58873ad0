// Package requirements reads and writes pip requirement files.
//
// penv does not define a format of its own: requirements.txt is written
// straight from `pip freeze` and read back with just enough parsing to know
// which distribution names it mentions, so already-installed packages can be
// reported and skipped. pyproject.toml dependency lists (PEP 621 and Poetry)
// are accepted as an alternative input.
package requirements

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shinji-kodama/penv/internal/model"
)

// DefaultFile is the file name written by "generate requirements".
const DefaultFile = "requirements.txt"

// ErrNoRequirements is returned when a file parses but names no packages.
var ErrNoRequirements = errors.New("no valid packages found")

// File is the parsed content of a requirements source.
type File struct {
	// Requirements are the entries whose package name is known up front.
	Requirements []model.Requirement

	// Unresolved holds entries pip installs from but whose package names
	// are only known once pip runs: nested -r files, editables (-e), bare
	// URLs and local paths. A file with unresolved entries always has to
	// be handed to pip.
	Unresolved []string
}

// Empty reports whether the file installs nothing at all.
func (f *File) Empty() bool {
	return len(f.Requirements) == 0 && len(f.Unresolved) == 0
}

// requirementPattern splits a requirement into name, optional extras and
// optional specifier. Names follow PEP 508: letters, digits, ".", "_", "-".
var requirementPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[([^\]]*)\])?\s*(.*)$`)

// directReferencePattern matches "name[extras] @ url ; marker". The marker
// separator must follow whitespace since ";" is legal inside a URL.
var directReferencePattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[([^\]]*)\])?\s*@\s*(\S+)(?:\s+;\s*(.*))?$`)

// inlineComment matches a trailing comment. pip only treats "#" as a
// comment start when it follows whitespace, so "pkg==1.0#frag" is left alone.
var inlineComment = regexp.MustCompile(`\s+#.*$`)

// specifierPattern validates what follows the name: comma separated
// clauses such as "==1.0", ">=2,<3" or "~=1.4".
var specifierPattern = regexp.MustCompile(`^((?:===|==|!=|<=|>=|~=|<|>)\s*[A-Za-z0-9.*+!_-]+\s*,?\s*)*$`)

// installOptions are the requirements.txt options that pull in packages.
// Other options (--index-url, -c, ...) only steer pip and are skipped.
var installOptions = []string{"-r", "--requirement", "-e", "--editable"}

// Parse reads requirements.txt content. Blank lines, comments and
// non-installing options (--index-url, -c, ...) are skipped; inline
// comments are dropped. Lines that are not a named requirement (nested
// -r files, -e, URLs, local paths) are kept in File.Unresolved rather
// than rejected, since pip itself will handle them during install.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(inlineComment.ReplaceAllString(scanner.Text(), ""))

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "-") {
			if isInstallOption(line) {
				f.Unresolved = append(f.Unresolved, line)
			}
			continue
		}

		if req, ok := ParseLine(line); ok {
			req.Line = lineNum
			f.Requirements = append(f.Requirements, req)
			continue
		}
		f.Unresolved = append(f.Unresolved, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

func isInstallOption(line string) bool {
	for _, opt := range installOptions {
		if line == opt || strings.HasPrefix(line, opt+" ") || strings.HasPrefix(line, opt+"=") ||
			strings.HasPrefix(line, opt+"\t") {
			return true
		}
		// Short options may be glued to their value: "-rbase.txt".
		if len(opt) == 2 && strings.HasPrefix(line, opt) && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}

// ParseLine parses a single PEP 508 requirement such as
// "requests[socks]>=2.31 ; python_version >= '3.8'  # http" or
// "mylib @ git+https://github.com/org/mylib.git". Environment markers
// and direct references are kept so the requirement can be handed back
// to pip unchanged in meaning.
func ParseLine(line string) (model.Requirement, bool) {
	// Remove inline comments ("#" preceded by whitespace, per pip)
	line = strings.TrimSpace(inlineComment.ReplaceAllString(line, ""))
	if line == "" {
		return model.Requirement{}, false
	}

	if m := directReferencePattern.FindStringSubmatch(line); m != nil {
		return model.Requirement{
			Name:   m[1],
			Extras: splitExtras(m[2]),
			URL:    m[3],
			Marker: strings.TrimSpace(m[4]),
		}, true
	}
	if strings.Contains(line, "://") {
		return model.Requirement{}, false
	}

	var marker string
	if idx := strings.Index(line, ";"); idx >= 0 {
		marker = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}

	m := requirementPattern.FindStringSubmatch(line)
	if m == nil {
		return model.Requirement{}, false
	}

	spec := strings.ReplaceAll(strings.TrimSpace(m[3]), " ", "")
	if !specifierPattern.MatchString(spec) {
		return model.Requirement{}, false
	}

	return model.Requirement{
		Name:      m[1],
		Extras:    splitExtras(m[2]),
		Specifier: spec,
		Marker:    marker,
	}, true
}

func splitExtras(s string) []string {
	var extras []string
	for _, extra := range strings.Split(s, ",") {
		if extra = strings.TrimSpace(extra); extra != "" {
			extras = append(extras, extra)
		}
	}
	return extras
}

// IsPyProject reports whether path names a pyproject.toml file.
func IsPyProject(path string) bool {
	return strings.EqualFold(filepath.Base(path), "pyproject.toml")
}

// LoadFile reads path and parses it according to its name. A missing file
// or a file that installs nothing is reported as a CLIError with
// ExitRequirementsError; ErrNoRequirements can be matched with errors.Is.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapCLIError(model.ExitRequirementsError,
				fmt.Sprintf("'%s' not found", path), err)
		}
		return nil, model.WrapCLIError(model.ExitRequirementsError,
			fmt.Sprintf("failed to read %s", path), err)
	}

	var f *File
	if IsPyProject(path) {
		f, err = ParsePyProject(data)
	} else {
		f, err = Parse(bytes.NewReader(data))
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitRequirementsError,
			fmt.Sprintf("failed to parse %s", path), err)
	}

	if f.Empty() {
		return nil, model.WrapCLIError(model.ExitRequirementsError,
			fmt.Sprintf("no valid packages found in %s", path), ErrNoRequirements)
	}
	return f, nil
}

// Names returns the distribution names of reqs in order.
func Names(reqs []model.Requirement) []string {
	names := make([]string, 0, len(reqs))
	for _, r := range reqs {
		names = append(names, r.Name)
	}
	return names
}
