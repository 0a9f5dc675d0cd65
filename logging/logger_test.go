package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Cleanup(Reset)

	logger := NewLogger("selector")
	require.NotNil(t, logger)
	assert.Equal(t, "selector", logger.Data["component"])

	// singleton per component
	assert.Same(t, logger, NewLogger("selector"))
	assert.NotSame(t, logger, NewLogger("inject"))
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "recorded action",
				Data: logrus.Fields{
					"component": "actions",
					"sequence":  3,
					"type":      "click",
				},
			},
			want: []string{"[INFO]", "[actions]", "recorded action", "sequence=3 type=click"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "skipped malformed action",
				Data:    logrus.Fields{"component": "actions"},
			},
			want:    []string{"[WARN]", "skipped malformed action"},
			notWant: []string{"[actions]", "component="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			require.NoError(t, err)
			s := string(out)
			for _, w := range tt.want {
				assert.Contains(t, s, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, s, nw)
			}
			assert.True(t, strings.HasSuffix(s, "\n"))
		})
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{})
	logger.SetLevel(logrus.WarnLevel)

	entry := logger.WithField("component", "test")
	entry.Debug("debug message")
	entry.Info("info message")
	entry.Warn("warn message")
	entry.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestEnvironmentVariables(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("RECORDER_LOG_LEVEL", "debug")
	t.Setenv("RECORDER_LOG_CALLER", "true")

	logger := NewLogger("env-test")
	assert.Equal(t, logrus.DebugLevel, logger.Logger.Level)
	assert.True(t, logger.Logger.ReportCaller)
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("RECORDER_LOG_LEVEL", "warn")

	before := NewLogger("before")
	assert.Equal(t, logrus.WarnLevel, before.Logger.Level)

	SetLevel(logrus.DebugLevel)
	assert.Equal(t, logrus.DebugLevel, before.Logger.Level)
	assert.Equal(t, logrus.DebugLevel, NewLogger("after").Logger.Level)
}

func TestConfigFileSink(t *testing.T) {
	t.Cleanup(Reset)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "recorder.log")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recorder.yml"), []byte(`
logging:
  level: debug
  file:
    enabled: true
    path: `+logPath+`
  format:
    preset: simple
    structured_to_stderr: never
`), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	logger := NewLogger("file-test")
	logger.Info("written to file")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] written to file")
}

func TestFileSinkReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sink.log")
	sink := newFileSink(path)
	defer sink.Close()

	_, err := sink.Write([]byte("first\n"))
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	_, err = sink.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}
