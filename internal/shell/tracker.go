package shell

import (
	"github.com/shinji-kodama/penv/internal/pip"
	"github.com/shinji-kodama/penv/internal/progress"
)

// Tracker turns pip events into progress updates. The reporter is only
// started on the first event, so operations that end before pip prints
// anything (nothing to install, early failure) show no progress at all.
type Tracker struct {
	reporter progress.Reporter
	title    string
	perItem  bool
	started  bool
}

// NewTracker returns a Tracker for one operation.
//
// With perItem set, progress advances once per package of a batch
// (remove all, upgrade) and the total comes from pip.EventBatchStart.
// Otherwise every "Collecting"/"Uninstalling" line is a step and the total
// stays unknown, since pip resolves dependencies the caller cannot count.
func NewTracker(r progress.Reporter, title string, perItem bool) *Tracker {
	return &Tracker{reporter: r, title: title, perItem: perItem}
}

// Observe implements pip.Observer.
func (t *Tracker) Observe(e pip.Event) {
	if !t.started {
		t.reporter.Start(t.title, 0)
		t.started = true
	}

	if t.perItem {
		switch e.Kind {
		case pip.EventBatchStart:
			t.reporter.SetTotal(e.Total)
		case pip.EventItemDone:
			desc := e.Package
			if e.Err != nil {
				desc += " (failed)"
			}
			t.reporter.Step(desc)
		}
		return
	}

	switch e.Kind {
	case pip.EventCollecting:
		t.reporter.Step("Collecting " + e.Package)
	case pip.EventUninstalling:
		t.reporter.Step("Removing " + e.Package)
	}
}

// Finish ends the operation.
func (t *Tracker) Finish(err error) {
	if t.started {
		t.reporter.Done(err == nil)
	}
}
