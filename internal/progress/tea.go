package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type (
	stepMsg  struct{ desc string }
	totalMsg struct{ total int }
	doneMsg  struct{ ok bool }
)

// model is the bubbletea model behind TeaReporter.
type model struct {
	title   string
	desc    string
	total   int
	current int

	spinner spinner.Model
	bar     progress.Model

	finished bool
	ok       bool
}

func newModel(title string, total int) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{
		title:   title,
		total:   total,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		m.current++
		m.desc = msg.desc
		return m, nil
	case totalMsg:
		m.total = msg.total
		return m, nil
	case doneMsg:
		m.finished = true
		m.ok = msg.ok
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.finished {
		if m.ok {
			return okStyle.Render("✓") + " " + m.title + "\n"
		}
		return failStyle.Render("✗") + " " + m.title + "\n"
	}

	var sb strings.Builder
	sb.WriteString(m.spinner.View() + " " + titleStyle.Render(m.title))
	if m.desc != "" {
		sb.WriteString(" " + descStyle.Render(m.desc))
	}
	sb.WriteString("\n")
	if m.total > 0 {
		percent := float64(m.current) / float64(m.total)
		if percent > 1 {
			percent = 1
		}
		sb.WriteString(fmt.Sprintf("%s %d/%d\n", m.bar.ViewAs(percent), m.current, m.total))
	}
	return sb.String()
}

// TeaReporter renders progress with a bubbletea program. Each Start runs a
// fresh program in its own goroutine; Done stops it and waits for the
// final frame to be written.
//
// The program reads no input and installs no signal handler, so Ctrl-C
// still reaches the command's context.
type TeaReporter struct {
	mu      sync.Mutex
	w       io.Writer
	program *tea.Program
	exited  chan struct{}
}

// NewTeaReporter returns a TeaReporter rendering to w.
func NewTeaReporter(w io.Writer) *TeaReporter {
	return &TeaReporter{w: w}
}

func (r *TeaReporter) Start(title string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.stopLocked(false)
	}

	r.program = tea.NewProgram(newModel(title, total),
		tea.WithOutput(r.w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	r.exited = make(chan struct{})

	go func(p *tea.Program, exited chan struct{}) {
		defer close(exited)
		_, _ = p.Run()
	}(r.program, r.exited)
}

func (r *TeaReporter) SetTotal(total int) {
	r.send(totalMsg{total: total})
}

func (r *TeaReporter) Step(desc string) {
	r.send(stepMsg{desc: desc})
}

func (r *TeaReporter) Done(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.stopLocked(ok)
	}
}

func (r *TeaReporter) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (r *TeaReporter) stopLocked(ok bool) {
	r.program.Send(doneMsg{ok: ok})
	<-r.exited
	r.program, r.exited = nil, nil
}
