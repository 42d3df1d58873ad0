// Package exectest provides a scripted execx.Runner for tests.
package exectest

import (
	"context"
	"strings"
	"sync"

	"github.com/shinji-kodama/penv/internal/execx"
)

// Response is the scripted outcome of one command.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// Err, when set, is returned as-is (e.g. execx.ErrNotFound wrapping).
	Err error
}

// HandlerFunc decides whether it answers cmd. Returning false passes the
// command on to the next handler.
type HandlerFunc func(cmd execx.Command) (Response, bool)

// Recorder records every command it receives and answers from handlers in
// registration order. Unmatched commands succeed with empty output.
type Recorder struct {
	mu       sync.Mutex
	calls    []execx.Command
	handlers []HandlerFunc
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Handle registers a handler.
func (r *Recorder) Handle(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// OnArgs answers resp for any command whose argument list contains args as
// a contiguous run, e.g. OnArgs(resp, "pip", "list").
func (r *Recorder) OnArgs(resp Response, args ...string) {
	needle := " " + strings.Join(args, " ") + " "
	r.Handle(func(cmd execx.Command) (Response, bool) {
		hay := " " + strings.Join(cmd.Args, " ") + " "
		return resp, strings.Contains(hay, needle)
	})
}

// Calls returns a copy of the recorded commands.
func (r *Recorder) Calls() []execx.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]execx.Command, len(r.calls))
	copy(out, r.calls)
	return out
}

// Argv returns the recorded commands as "name arg1 arg2" strings, which
// keeps assertions short.
func (r *Recorder) Argv() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, strings.Join(append([]string{c.Name}, c.Args...), " "))
	}
	return out
}

// Reset forgets recorded calls but keeps handlers.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Run implements execx.Runner.
func (r *Recorder) Run(ctx context.Context, cmd execx.Command) (execx.Result, error) {
	return r.Stream(ctx, cmd, nil)
}

// Stream implements execx.Runner.
func (r *Recorder) Stream(ctx context.Context, cmd execx.Command, onLine func(string)) (execx.Result, error) {
	if err := ctx.Err(); err != nil {
		return execx.Result{}, err
	}

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	handlers := append([]HandlerFunc(nil), r.handlers...)
	r.mu.Unlock()

	var resp Response
	for _, h := range handlers {
		if got, ok := h(cmd); ok {
			resp = got
			break
		}
	}

	if onLine != nil && resp.Stdout != "" {
		for _, line := range strings.Split(strings.TrimRight(resp.Stdout, "\n"), "\n") {
			onLine(line)
		}
	}

	res := execx.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.Err != nil {
		return res, resp.Err
	}
	if resp.ExitCode != 0 {
		return res, &execx.ExitError{Code: resp.ExitCode, Stderr: resp.Stderr}
	}
	return res, nil
}
