package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/KOMKZ/go-yogan-signal/logger"
	"github.com/KOMKZ/go-yogan-signal/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.Listeners = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.BreakEvery = -1
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.ConfigFiles = []string{""}
	assert.Error(t, bad.Validate())
}

func TestRun_SingleProducerIsDeterministic(t *testing.T) {
	testLogger := logger.NewTestCtxLogger()
	opts := Options{Listeners: 3, Producers: 1, Emits: 10, BreakEvery: 5}

	report, err := Run(context.Background(), signal.New[Tick](), opts, testLogger)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, int64(10), report.Emits)
	assert.Equal(t, int64(2), report.Breaks)
	// ticks 5 and 10 break before the counters
	assert.Equal(t, int64(3*8), report.Invocations)
	assert.Equal(t, int64(1), report.Unsubscribed)
	assert.Equal(t, 4, report.Listeners, "breaker and counters remain")
	assert.True(t, testLogger.HasLogWithField("INFO", "bench finished", "run_id", report.RunID))
}

func TestRun_ConcurrentProducers(t *testing.T) {
	opts := Options{Listeners: 4, Producers: 8, Emits: 50}

	report, err := Run(context.Background(), signal.New[Tick](), opts, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(400), report.Emits)
	assert.Zero(t, report.Breaks)
	assert.Equal(t, int64(4*400), report.Invocations)
	assert.GreaterOrEqual(t, report.Unsubscribed, int64(1))
	assert.Equal(t, 4, report.Listeners)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, signal.New[Tick](), Options{Listeners: 1, Producers: 2, Emits: 10}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Emits)
}

func TestReport_Print(t *testing.T) {
	var buf bytes.Buffer
	Report{RunID: "r1", Emits: 3}.Print(&buf)

	assert.Contains(t, buf.String(), "run r1")
	assert.Contains(t, buf.String(), "emits:        3")
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
logger:
  enable_console: false
  disable_file: true
telemetry:
  enabled: true
  service_name: signal-bench
  exporter:
    type: noop
signal:
  enabled: true
  name: tick
  tracing: true
`), 0644))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"run",
		"--listeners", "2",
		"--producers", "2",
		"--emits", "5",
		"--config", dir,
		"--env-prefix", "SIGNAL_BENCH_TEST",
	})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "emits:        10")
	assert.Contains(t, out.String(), "listeners:    2")
}

func TestRunCmd_ConfigFileOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte(`
logger:
  enable_console: false
  disable_file: true
signal:
  name: overlay
`), 0644))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"run",
		"--listeners", "1",
		"--producers", "1",
		"--emits", "3",
		"--config", dir,
		"--config-file", overlay,
		"--env-prefix", "SIGNAL_BENCH_OVERLAY",
	})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "emits:        3")

	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--config", dir, "--config-file", filepath.Join(dir, "absent.yaml")})
	assert.Error(t, root.Execute())
}
