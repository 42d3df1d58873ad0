package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestTextReporter_KnownTotal(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf)

	r.Start("Removing packages", 0)
	r.SetTotal(2)
	r.Step("certifi")
	r.Step("requests")
	r.Done(true)

	assert.Equal(t, "Removing packages...\n  [1/2] certifi\n  [2/2] requests\nRemoving packages... done\n", buf.String())
}

func TestTextReporter_Indeterminate(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf)

	r.Start("Installing flask", 0)
	r.Step("Collecting flask")
	r.Done(false)

	assert.Equal(t, "Installing flask...\n  Collecting flask\nInstalling flask... failed\n", buf.String())
}

// TestTextReporter_IgnoresOutsideOperation checks that stray calls before
// Start or after Done print nothing.
func TestTextReporter_IgnoresOutsideOperation(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf)

	r.Step("early")
	r.Done(true)
	r.Start("x", 1)
	r.Done(true)
	r.Step("late")
	r.Done(true)

	assert.Equal(t, "x...\nx... done\n", buf.String())
}

// TestNew_NonTerminal verifies that a plain writer never gets the
// interactive renderer.
func TestNew_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	_, ok := New(&buf).(*TextReporter)
	assert.True(t, ok)
}

// TestTeaReporter_NoLeak runs two full operations and verifies the
// bubbletea goroutines are gone after Done.
func TestTeaReporter_NoLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf bytes.Buffer
	r := NewTeaReporter(&buf)

	r.Start("Installing flask", 0)
	r.Step("Collecting flask")
	r.Step("Collecting werkzeug")
	r.Done(true)

	r.Start("Upgrading packages", 0)
	r.SetTotal(1)
	r.Step("requests")
	r.Done(false)

	assert.Contains(t, buf.String(), "Installing flask")
	assert.Contains(t, buf.String(), "Upgrading packages")
}

func TestTeaReporter_DoneWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewTeaReporter(&bytes.Buffer{})
	r.Step("ignored")
	r.Done(true)
}

func TestModel_View(t *testing.T) {
	m := newModel("Removing packages", 4)
	next, _ := m.Update(stepMsg{desc: "certifi"})
	m = next.(model)

	view := m.View()
	assert.Contains(t, view, "Removing packages")
	assert.Contains(t, view, "certifi")
	assert.Contains(t, view, "1/4")

	next, cmd := m.Update(doneMsg{ok: true})
	m = next.(model)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "✓")
}
