package execx_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/penv/internal/execx"
	"github.com/shinji-kodama/penv/internal/execx/exectest"
)

// TestLoggingRunner checks that the decorator forwards to the wrapped runner
// and only logs at debug level.
func TestLoggingRunner(t *testing.T) {
	rec := exectest.NewRecorder()
	rec.OnArgs(exectest.Response{Stdout: "Collecting x\n"}, "install")

	var buf bytes.Buffer
	logger := log.New(&buf)
	r := execx.WithLogging(rec, logger)

	cmd := execx.Command{Name: "python", Args: []string{"-m", "pip", "install", "x"}}

	_, err := r.Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "info level must not log commands")

	logger.SetLevel(log.DebugLevel)
	var lines []string
	_, err = r.Stream(context.Background(), cmd, func(l string) { lines = append(lines, l) })
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "python -m pip install x")
	assert.Equal(t, []string{"Collecting x"}, lines)
	assert.Len(t, rec.Calls(), 2)
}
