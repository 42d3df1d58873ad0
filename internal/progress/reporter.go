// Package progress shows progress of long running pip operations.
//
// On a terminal a bubbletea program renders a spinner and, when the number
// of steps is known, a progress bar. Everywhere else (pipes, CI logs, tests)
// a TextReporter prints one plain line per step.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Reporter receives progress for one operation at a time.
//
// Start begins an operation; total is the number of expected steps, or 0
// when unknown. SetTotal fixes the total once it is discovered (e.g. after
// pip freeze). Step advances by one and describes the current item. Done
// ends the operation. Calls outside Start/Done are ignored.
type Reporter interface {
	Start(title string, total int)
	SetTotal(total int)
	Step(desc string)
	Done(ok bool)
}

// New returns a TeaReporter when w is a terminal and a TextReporter
// otherwise.
func New(w io.Writer) Reporter {
	if f, ok := w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return NewTeaReporter(w)
		}
	}
	return NewTextReporter(w)
}

// Nop discards all progress. Used for --json output.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) SetTotal(int)      {}
func (Nop) Step(string)       {}
func (Nop) Done(bool)         {}

// TextReporter writes plain lines:
//
//	Removing packages...
//	  [1/3] certifi
//	  [2/3] idna
//	  [3/3] requests
//	Removing packages... done
type TextReporter struct {
	mu      sync.Mutex
	w       io.Writer
	title   string
	total   int
	current int
	active  bool
}

// NewTextReporter returns a TextReporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

func (r *TextReporter) Start(title string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title, r.total, r.current, r.active = title, total, 0, true
	fmt.Fprintf(r.w, "%s...\n", title)
}

func (r *TextReporter) SetTotal(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		r.total = total
	}
}

func (r *TextReporter) Step(desc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.current++
	if r.total > 0 {
		fmt.Fprintf(r.w, "  [%d/%d] %s\n", r.current, r.total, desc)
		return
	}
	fmt.Fprintf(r.w, "  %s\n", desc)
}

func (r *TextReporter) Done(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.active = false
	status := "done"
	if !ok {
		status = "failed"
	}
	fmt.Fprintf(r.w, "%s... %s\n", r.title, status)
}
