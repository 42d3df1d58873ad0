package execx

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LoggingRunner decorates a Runner with debug logging of every command line,
// its duration and exit code. With the logger at info level (the default)
// nothing is printed; --verbose lowers it to debug.
type LoggingRunner struct {
	Runner Runner
	Logger *log.Logger
}

// WithLogging wraps r so that each invocation is logged to logger.
func WithLogging(r Runner, logger *log.Logger) Runner {
	return &LoggingRunner{Runner: r, Logger: logger}
}

// Run implements Runner.
func (l *LoggingRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	start := time.Now()
	l.Logger.Debug("exec", "cmd", cmd.String())
	res, err := l.Runner.Run(ctx, cmd)
	l.done(cmd, res, err, start)
	return res, err
}

// Stream implements Runner.
func (l *LoggingRunner) Stream(ctx context.Context, cmd Command, onLine func(string)) (Result, error) {
	start := time.Now()
	l.Logger.Debug("exec", "cmd", cmd.String())
	res, err := l.Runner.Stream(ctx, cmd, onLine)
	l.done(cmd, res, err, start)
	return res, err
}

func (l *LoggingRunner) done(cmd Command, res Result, err error, start time.Time) {
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		l.Logger.Debug("exec failed", "cmd", cmd.Name, "exit", res.ExitCode, "elapsed", elapsed, "err", err)
		return
	}
	l.Logger.Debug("exec done", "cmd", cmd.Name, "elapsed", elapsed)
}
