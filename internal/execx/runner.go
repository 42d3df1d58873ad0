package execx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrNotFound is returned when the program to run cannot be located on PATH.
var ErrNotFound = errors.New("executable not found")

// Command describes a single program invocation.
type Command struct {
	// Name is the program name or path, e.g. "python3" or "venv/bin/python".
	Name string

	// Args are the arguments passed after Name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the parent environment.
	Env []string
}

// String renders the command as a shell-quoted line, suitable for verbose
// logging and error messages.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, s := range append([]string{c.Name}, c.Args...) {
		q, err := syntax.Quote(s, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", s)
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Runner executes commands. Implementations must be safe to call
// sequentially from the menu loop; penv never runs two commands at once.
type Runner interface {
	// Run executes cmd to completion and returns its captured output.
	// A non-zero exit yields both a populated Result and an *ExitError.
	Run(ctx context.Context, cmd Command) (Result, error)

	// Stream behaves like Run but also calls onLine for each stdout line
	// as it is produced. onLine may be nil.
	Stream(ctx context.Context, cmd Command, onLine func(line string)) (Result, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct{}

// NewExecRunner returns a Runner that spawns real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	return r.Stream(ctx, c, nil)
}

// Stream implements Runner.
func (r *ExecRunner) Stream(ctx context.Context, c Command, onLine func(line string)) (Result, error) {
	// #nosec G204 -- the program is the detected interpreter or the venv's python
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", c.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, classify(c, err)
	}

	stdout, readErr := collectLines(stdoutPipe, onLine)
	waitErr := cmd.Wait()

	res := Result{Stdout: stdout, Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return res, &ExitError{Code: exitErr.ExitCode(), Stderr: res.Stderr}
		}
		return res, waitErr
	}
	if readErr != nil {
		return res, fmt.Errorf("reading output of %s: %w", c.Name, readErr)
	}
	return res, nil
}

// collectLines drains r, forwarding each line to onLine and returning the
// full text with newline terminators preserved. r is read to EOF even when
// scanning fails, otherwise the child blocks on a full pipe and never exits.
func collectLines(r io.Reader, onLine func(string)) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(r)
	// pip can print very long "Requirement already satisfied" lines.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteByte('\n')
		if onLine != nil {
			onLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return out.String(), err
	}
	return out.String(), nil
}

// classify maps start-up failures onto ErrNotFound where applicable.
func classify(c Command, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, c.Name)
	}
	return fmt.Errorf("starting %s: %w", c.Name, err)
}

// Describe builds a one-line failure description of the form
// "<command> failed: <stderr>", mirroring what the user would see in a
// terminal. Only the last non-empty stderr line is kept because pip
// prefixes the actual cause with long tracebacks.
func Describe(c Command, err error) string {
	message := fmt.Sprintf("%s failed", c.String())
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if last := lastLine(exitErr.Stderr); last != "" {
			message = fmt.Sprintf("%s: %s", message, last)
		}
	}
	return message
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
