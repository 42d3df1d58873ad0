package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/penv/internal/config"
	"github.com/shinji-kodama/penv/internal/execx"
	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/netcheck"
	"github.com/shinji-kodama/penv/internal/pip"
	"github.com/shinji-kodama/penv/internal/progress"
	"github.com/shinji-kodama/penv/internal/pyruntime"
	"github.com/shinji-kodama/penv/internal/shell"
	"github.com/shinji-kodama/penv/internal/venv"
)

// newRunner builds the command runner. Tests replace it with a recorder.
var newRunner = func() execx.Runner {
	return execx.NewExecRunner()
}

// stdin is where prompts read answers. Tests replace it.
var stdin io.Reader = os.Stdin

// session is everything a command needs to operate on one environment.
type session struct {
	cfg     *config.Config
	runner  execx.Runner
	venvDir string
	client  *pip.Client
	prompt  *shell.Prompter
}

// sessionOptions selects the start-up steps a command needs.
type sessionOptions struct {
	// network runs the connectivity check (unless offline).
	network bool

	// create creates the environment when missing; otherwise a missing
	// environment is an error.
	create bool

	// askName prompts for the environment name unless --venv was given.
	askName bool
}

// loadConfig resolves configuration for cmd, honoring --config and the
// --venv/--python/--offline flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, path, err := config.Load(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	if path != "" {
		VerboseLog("Loaded config from %s", path)
	}
	return cfg, nil
}

// openSession performs the start-up sequence shared by the interactive menu
// and the subcommands:
//
//  1. resolve configuration
//  2. check internet connectivity (pip needs the package index)
//  3. ask for the environment name
//  4. detect the base interpreter, installing it if absent, and create the
//     environment when it does not exist yet
//
// Callers close the returned session when done.
func openSession(ctx context.Context, cmd *cobra.Command, opts sessionOptions) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		runner: execx.WithLogging(newRunner(), logger),
		prompt: shell.NewPrompter(stdin, cmd.OutOrStdout()),
	}
	if err := s.open(ctx, cmd, opts); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close stops reading prompt input.
func (s *session) Close() {
	_ = s.prompt.Close()
}

func (s *session) open(ctx context.Context, cmd *cobra.Command, opts sessionOptions) error {
	cfg := s.cfg

	// Step 1: Connectivity.
	if opts.network && !cfg.Offline {
		VerboseLog("Checking connectivity to %s", cfg.ConnectivityURL)
		if err := netcheck.Check(ctx, nil, cfg.ConnectivityURL, cfg.ConnectivityTimeout); err != nil {
			return err
		}
	}

	// Step 2: Environment name.
	s.venvDir = cfg.Venv
	if opts.askName && !cmd.Flags().Changed("venv") {
		label := fmt.Sprintf("Enter the virtual environment name (default: %s): ", cfg.Venv)
		name, err := s.prompt.AskDefault(ctx, label, cfg.Venv)
		if err != nil && !errors.Is(err, io.EOF) {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
		}
		if name != "" {
			s.venvDir = name
		}
	}
	if err := model.ValidateVenvName(s.venvDir); err != nil {
		return model.WrapCLIError(model.ExitVenvError, "invalid virtual environment name", err)
	}

	// Step 3: Interpreter and environment.
	manager := venv.NewManager(s.runner, "")
	if !manager.Exists(s.venvDir) {
		if !opts.create {
			return model.NewCLIError(model.ExitVenvError,
				fmt.Sprintf("virtual environment %q not found (run penv or penv install first)", s.venvDir))
		}

		interp, err := s.ensureInterpreter(ctx)
		if err != nil {
			return err
		}

		logger.Info("Creating virtual environment", "name", s.venvDir, "python", interp.Version)
		manager = venv.NewManager(s.runner, interp.Path)
		if _, err := manager.Ensure(ctx, s.venvDir); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("Virtual environment '%s' created successfully.", s.venvDir))
	}

	s.client = pip.NewClient(s.runner, manager.PythonPath(s.venvDir))
	return nil
}

// ensureInterpreter detects the base interpreter and, when none is
// installed, runs the official installer and detects again.
func (s *session) ensureInterpreter(ctx context.Context) (*pyruntime.Interpreter, error) {
	detector := pyruntime.NewDetector(s.runner, s.cfg.Python, s.cfg.MinPython)
	interp, err := detector.Detect(ctx)
	if err == nil {
		VerboseLog("Using %s", interp)
		return interp, nil
	}
	if !errors.Is(err, pyruntime.ErrNotInstalled) {
		return nil, err
	}

	logger.Info("Python is not installed. Downloading and installing...", "version", s.cfg.InstallVersion)
	installer := pyruntime.NewInstaller(s.runner, s.cfg.InstallVersion, s.cfg.InstallDir)
	if err := installer.Install(ctx); err != nil {
		return nil, err
	}
	logger.Info("Python installed successfully!")

	// The installer prepends its directory to the machine PATH, which this
	// process does not see; probe the install location directly.
	interp, err = pyruntime.NewDetector(s.runner, installer.InterpreterPath(), s.cfg.MinPython).Detect(ctx)
	if err != nil {
		return nil, err
	}
	return interp, nil
}

// reporter returns the progress reporter for subcommands: none in JSON
// mode, a terminal renderer or plain lines on stderr otherwise.
func reporter() progress.Reporter {
	if IsJSONOutput() {
		return progress.Nop{}
	}
	return progress.New(os.Stderr)
}

// runInteractive is the root command: start-up sequence, then the menu.
func runInteractive(ctx context.Context, cmd *cobra.Command) error {
	s, err := openSession(ctx, cmd, sessionOptions{network: true, create: true, askName: true})
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	sh := shell.New(s.prompt, out, s.client, shell.Options{
		VenvName:            s.venvDir,
		RequirementsFile:    s.cfg.RequirementsFile,
		CheckUpdatesOnStart: s.cfg.CheckUpdatesOnStart,
		Logger:              logger,
		Progress:            progress.New(out),
	})
	return sh.Run(ctx)
}
