package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestZapLogger_FieldsAreTyped(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	log.Info("pass completed",
		String("pass_id", "p-1"),
		Int("alerts", 3),
		Int64("cheques", 42),
		Float64("rate", 0.5),
		Bool("cached", false),
		Duration("took", 15*time.Millisecond),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "pass completed", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "p-1", ctx["pass_id"])
	assert.EqualValues(t, 3, ctx["alerts"])
	assert.EqualValues(t, 42, ctx["cheques"])
	assert.Equal(t, 0.5, ctx["rate"])
	assert.Equal(t, false, ctx["cached"])
	assert.Equal(t, 15*time.Millisecond, ctx["took"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	log, logs := newObserved(zapcore.WarnLevel)
	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown")
	assert.Equal(t, 2, logs.Len())
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)
	child := log.Named("tracking").With(String("pass_id", "p-2"))
	child.Info("alerts generated")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "tracking", entry.LoggerName)
	assert.Equal(t, "p-2", entry.ContextMap()["pass_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger_Defaults(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_BadPath(t *testing.T) {
	_, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/x/y.log"}})
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := NewLogger(LogConfig{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)
	child := l.Named("worker")

	child.Info("dropped")
	require.True(t, SetLevel(l, "debug"))
	child.Debug("kept")
	require.NoError(t, l.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), "kept")

	assert.False(t, SetLevel(NewNopLogger(), "debug"))
	assert.False(t, SetLevel(NewLoggerFromCore(zapcore.NewNopCore()), "debug"))
}

func TestDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	SetDefault(nil)
	assert.Equal(t, prev, Default())

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())
	assert.NoError(t, Default().Sync())
}
