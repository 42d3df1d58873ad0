// Package shell implements the interactive numbered menu.
//
// Each iteration prints the menu, reads one line and runs the matching
// package operation to completion before prompting again. Operation errors
// are printed and the loop continues; only end of input, an exit choice or
// a cancelled context leave the loop.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/pip"
	"github.com/shinji-kodama/penv/internal/progress"
	"github.com/shinji-kodama/penv/internal/requirements"
)

// Operations is the package manager surface the menu drives.
// *pip.Client implements it.
type Operations interface {
	List(ctx context.Context) ([]model.Package, error)
	Install(ctx context.Context, name string, obs pip.Observer) error
	InstallRequirements(ctx context.Context, path string, obs pip.Observer) (*pip.InstallReport, error)
	Uninstall(ctx context.Context, name string, obs pip.Observer) error
	UninstallAll(ctx context.Context, obs pip.Observer) (int, error)
	Freeze(ctx context.Context) (string, error)
	Outdated(ctx context.Context) ([]model.OutdatedPackage, error)
	Upgrade(ctx context.Context, names []string, obs pip.Observer) (int, error)
}

// Options configures a Shell.
type Options struct {
	// VenvName is shown in the menu header.
	VenvName string

	// RequirementsFile is the default for "install from file" and the
	// output of "generate requirements".
	RequirementsFile string

	// CheckUpdatesOnStart runs the update check once before the first menu.
	CheckUpdatesOnStart bool

	// Logger receives informational messages. Defaults to a logger on the
	// shell output.
	Logger *log.Logger

	// Progress renders long operations. Defaults to a TextReporter.
	Progress progress.Reporter
}

// menuItem is one numbered menu entry.
type menuItem struct {
	key   string
	label string
	run   func(s *Shell, ctx context.Context) error
}

var menu = []menuItem{
	{"1", "Install a package", (*Shell).installPackage},
	{"2", "Remove a package", (*Shell).removePackage},
	{"3", "Remove all packages", (*Shell).removeAll},
	{"4", "Install from requirements file", (*Shell).installFromFile},
	{"5", "List installed packages", (*Shell).listPackages},
	{"6", "Generate requirements file", (*Shell).generateRequirements},
	{"7", "Check for updates", (*Shell).checkUpdates},
}

// exitChoices leave the menu.
var exitChoices = map[string]bool{"0": true, "q": true, "quit": true, "exit": true}

// Shell is the interactive menu loop.
type Shell struct {
	prompt   *Prompter
	out      io.Writer
	ops      Operations
	opts     Options
	logger   *log.Logger
	progress progress.Reporter
}

// New creates a Shell reading answers through prompt and writing to out.
func New(prompt *Prompter, out io.Writer, ops Operations, opts Options) *Shell {
	if opts.RequirementsFile == "" {
		opts.RequirementsFile = requirements.DefaultFile
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(out)
	}
	reporter := opts.Progress
	if reporter == nil {
		reporter = progress.NewTextReporter(out)
	}
	return &Shell{
		prompt:   prompt,
		out:      out,
		ops:      ops,
		opts:     opts,
		logger:   logger,
		progress: reporter,
	}
}

// Run executes the menu loop. It returns nil when the user exits or the
// input ends, and a CLIError with ExitUserCancelled when ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	if s.opts.CheckUpdatesOnStart {
		if err := s.checkUpdates(ctx); err != nil {
			if ctx.Err() != nil {
				return interrupted(ctx.Err())
			}
			s.printError(err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return interrupted(err)
		}

		s.printMenu()
		choice, err := s.prompt.Ask(ctx, "Enter your choice (1-7, q to quit): ")
		if errors.Is(err, io.EOF) {
			s.logger.Info("Exiting... Goodbye!")
			return nil
		}
		if err != nil {
			return interrupted(err)
		}

		choice = strings.ToLower(choice)
		if exitChoices[choice] {
			s.logger.Info("Exiting... Goodbye!")
			return nil
		}

		item, ok := lookup(choice)
		if !ok {
			fmt.Fprintln(s.out, errorStyle.Render(
				fmt.Sprintf("Invalid choice %q. Please enter a number between 1 and %d, or q to quit.", choice, len(menu))))
			continue
		}

		if err := item.run(s, ctx); err != nil {
			if ctx.Err() != nil {
				return interrupted(ctx.Err())
			}
			s.printError(err)
		}
	}
}

func lookup(choice string) (menuItem, bool) {
	for _, item := range menu {
		if item.key == choice {
			return item, true
		}
	}
	return menuItem{}, false
}

func interrupted(err error) error {
	return model.WrapCLIError(model.ExitUserCancelled, "interrupted", err)
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out)
	header := "Choose an option:"
	if s.opts.VenvName != "" {
		header = fmt.Sprintf("Choose an option (%s):", s.opts.VenvName)
	}
	fmt.Fprintln(s.out, titleStyle.Render(header))
	for _, item := range menu {
		fmt.Fprintf(s.out, "%s %s\n", keyStyle.Render("["+item.key+"]"), item.label)
	}
	fmt.Fprintf(s.out, "%s %s\n", keyStyle.Render("[q]"), "Exit")
}

func (s *Shell) printError(err error) {
	fmt.Fprintln(s.out, errorStyle.Render("ERROR: "+err.Error()))
}

func (s *Shell) printSuccess(msg string) {
	fmt.Fprintln(s.out, successStyle.Render(msg))
}
