package model

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// Package is a single installed distribution as reported by
// `pip list --format=json` or a `pip freeze` line.
type Package struct {
	// Name is the distribution name exactly as pip prints it.
	Name string `json:"name"`

	// Version is the installed version string. Python versions are not
	// always semver-shaped (e.g. "2024.1.post1"), so it is kept verbatim.
	Version string `json:"version"`
}

// String returns the pinned requirement form "name==version".
func (p Package) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "==" + p.Version
}

// UpdateKind classifies how far an outdated package is behind.
type UpdateKind string

const (
	// UpdateMajor means the major version component changes.
	UpdateMajor UpdateKind = "major"

	// UpdateMinor means the major version is the same but the minor differs.
	UpdateMinor UpdateKind = "minor"

	// UpdatePatch means only the patch component (or a suffix) changes.
	UpdatePatch UpdateKind = "patch"

	// UpdateUnknown is used when either version is not comparable,
	// e.g. "1.0.0rc1" or four-component versions.
	UpdateUnknown UpdateKind = "unknown"
)

// String satisfies fmt.Stringer.
func (k UpdateKind) String() string {
	return string(k)
}

// OutdatedPackage is one row of `pip list --outdated --format=json`.
type OutdatedPackage struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	LatestVersion  string `json:"latest_version"`
	LatestFiletype string `json:"latest_filetype,omitempty"`
}

// UpdateKind compares Version and LatestVersion with semver rules.
// Python release numbers such as "2.31.0" or "24.1" are valid semver once
// prefixed with "v"; anything else yields UpdateUnknown.
func (o OutdatedPackage) UpdateKind() UpdateKind {
	cur, latest := CanonicalSemver(o.Version), CanonicalSemver(o.LatestVersion)
	if cur == "" || latest == "" || semver.Compare(cur, latest) >= 0 {
		return UpdateUnknown
	}
	switch {
	case semver.Major(cur) != semver.Major(latest):
		return UpdateMajor
	case semver.MajorMinor(cur) != semver.MajorMinor(latest):
		return UpdateMinor
	default:
		return UpdatePatch
	}
}

// CanonicalSemver converts a plain release number ("3.10.6", "24.1") into a
// canonical semver string ("v3.10.6", "v24.1.0"). It returns "" when the
// input is not a valid semver release.
func CanonicalSemver(version string) string {
	v := strings.TrimSpace(version)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// Requirement is one dependency declared in a requirements.txt or
// pyproject.toml file.
type Requirement struct {
	// Name is the distribution name without extras or specifiers.
	Name string `json:"name"`

	// Specifier is the version constraint, e.g. "==2.31.0" or ">=1.0,<2".
	// Empty when the requirement is unpinned.
	Specifier string `json:"specifier,omitempty"`

	// Extras lists the optional feature groups in brackets, e.g. "security".
	Extras []string `json:"extras,omitempty"`

	// URL is the direct reference of a "name @ url" requirement. Specifier
	// is empty when URL is set.
	URL string `json:"url,omitempty"`

	// Marker is the PEP 508 environment marker, e.g. "sys_platform == 'win32'".
	Marker string `json:"marker,omitempty"`

	// Line is the 1-based line number in the source file, or 0 when the
	// source has no meaningful line numbers (pyproject.toml).
	Line int `json:"line,omitempty"`
}

// String renders the requirement back into pip syntax.
func (r Requirement) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	if len(r.Extras) > 0 {
		sb.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.URL != "" {
		// A marker after a URL must be separated by whitespace.
		sb.WriteString(" @ " + r.URL)
		if r.Marker != "" {
			sb.WriteString(" ; " + r.Marker)
		}
		return sb.String()
	}
	sb.WriteString(r.Specifier)
	if r.Marker != "" {
		sb.WriteString("; " + r.Marker)
	}
	return sb.String()
}

// separatorRun matches the runs of "-", "_" and "." that PEP 503 treats as
// equivalent in distribution names.
var separatorRun = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the PEP 503 normalized form of a distribution name.
// pip treats "Flask_SQLAlchemy" and "flask-sqlalchemy" as the same package,
// so every installed-check compares normalized names.
func NormalizeName(name string) string {
	return strings.ToLower(separatorRun.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// PackageSet is a lookup of installed packages keyed by normalized name.
type PackageSet map[string]Package

// NewPackageSet indexes pkgs by NormalizeName.
func NewPackageSet(pkgs []Package) PackageSet {
	set := make(PackageSet, len(pkgs))
	for _, p := range pkgs {
		set[NormalizeName(p.Name)] = p
	}
	return set
}

// Has reports whether a package with the given name is in the set.
func (s PackageSet) Has(name string) bool {
	_, ok := s[NormalizeName(name)]
	return ok
}

// venvNameRegex allows plain directory names only. Path separators are
// rejected so the environment always lives in the invocation directory.
var venvNameRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateVenvName checks a user-supplied virtual environment directory name.
func ValidateVenvName(name string) error {
	if name == "" {
		return fmt.Errorf("virtual environment name must not be empty")
	}
	if name == "." || name == ".." || !venvNameRegex.MatchString(name) {
		return fmt.Errorf("invalid virtual environment name %q: use letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

// ExitCode defines the process exit codes of the penv binary.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitRuntimeMissing indicates no usable Python interpreter was found
	// and it could not be installed.
	ExitRuntimeMissing ExitCode = 2

	// ExitVenvError indicates the virtual environment could not be created
	// or is unusable.
	ExitVenvError ExitCode = 3

	// ExitPipError indicates a pip invocation failed.
	ExitPipError ExitCode = 4

	// ExitRequirementsError indicates a requirements file is missing or
	// could not be parsed.
	ExitRequirementsError ExitCode = 5

	// ExitNetworkUnavailable indicates the start-up connectivity probe failed.
	ExitNetworkUnavailable ExitCode = 6

	// ExitUserCancelled indicates the user declined a confirmation prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
