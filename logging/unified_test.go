package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestUnifiedLoggerEntries(t *testing.T) {
	t.Cleanup(Reset)
	ulog := NewUnifiedLogger("unified")
	assert.Equal(t, "unified", ulog.Component())
	assert.NotNil(t, ulog.WithPretty())
	assert.NotNil(t, ulog.WithStructured())

	tests := []struct {
		name   string
		entry  *LogEntry
		level  logrus.Level
		icon   string
		status interface{}
	}{
		{"debug", ulog.Debug("d"), logrus.DebugLevel, "", nil},
		{"info", ulog.Info("i"), logrus.InfoLevel, "", nil},
		{"warn", ulog.Warn("w"), logrus.WarnLevel, IconWarning, nil},
		{"error", ulog.Error("e"), logrus.ErrorLevel, IconError, nil},
		{"success", ulog.Success("s"), logrus.InfoLevel, IconSuccess, "success"},
		{"progress", ulog.Progress("p"), logrus.InfoLevel, IconRunning, "progress"},
		{"status", ulog.Status("st"), logrus.InfoLevel, IconInfo, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.level, tt.entry.level)
			assert.Equal(t, tt.icon, tt.entry.icon)
			assert.Equal(t, tt.status, tt.entry.fields["status"])
		})
	}
}

func TestLogEntryBuilders(t *testing.T) {
	t.Cleanup(Reset)
	ulog := NewUnifiedLogger("builders")

	entry := ulog.Info("msg").
		Field("file", "login.cy.js").
		Fields(map[string]interface{}{"statements": 4}).
		Err(assert.AnError).
		Icon(IconSuccess).
		NoIcon().
		PrettyOnly()

	assert.Equal(t, "login.cy.js", entry.fields["file"])
	assert.Equal(t, 4, entry.fields["statements"])
	assert.Equal(t, assert.AnError.Error(), entry.fields["error"])
	assert.True(t, entry.noIcon)
	assert.True(t, entry.prettyOnly)

	entry = ulog.Info("no error").Err(nil)
	assert.NotContains(t, entry.fields, "error")
}

func TestLogPrettyOutput(t *testing.T) {
	t.Cleanup(Reset)
	var buf bytes.Buffer
	ctx := WithWriter(context.Background(), &buf)
	ulog := NewUnifiedLogger("pretty")

	ulog.Success("injected").Log(ctx)
	assert.Contains(t, buf.String(), "injected")
	assert.Contains(t, buf.String(), IconSuccess)

	buf.Reset()
	ulog.Warn("no anchor").NoIcon().Log(ctx)
	assert.Contains(t, buf.String(), "no anchor")
	assert.NotContains(t, buf.String(), IconWarning)

	buf.Reset()
	ulog.Info("plain").Pretty("custom styled message").Log(ctx)
	assert.Contains(t, buf.String(), "custom styled message")

	buf.Reset()
	ulog.Info("structured only").StructuredOnly().Log(ctx)
	assert.Empty(t, buf.String())
}

func TestLogStructuredKeepsPlainMessage(t *testing.T) {
	t.Cleanup(Reset)
	var structured bytes.Buffer
	ulog := NewUnifiedLogger("structured")
	ulog.structured.Logger.SetOutput(&structured)
	ulog.structured.Logger.SetLevel(logrus.InfoLevel)

	var pretty bytes.Buffer
	ulog.Info("plain message").Pretty("fancy").Log(WithWriter(context.Background(), &pretty))

	assert.Contains(t, structured.String(), "plain message")
	assert.Contains(t, structured.String(), "pretty_text=fancy")
	assert.Contains(t, pretty.String(), "fancy")
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Success("done")
	p.WarnPretty("careful")
	p.ErrorPretty("failed", assert.AnError)
	p.Field("statements", 3)
	p.Path("backup", "/tmp/a.bak")
	p.Code("cy.visit(\"/\");\ncy.get(\"#a\").click();")
	p.Divider()

	out := buf.String()
	for _, want := range []string{"done", "careful", "failed", assert.AnError.Error(), "statements", "/tmp/a.bak", "  cy.visit(\"/\");", "─"} {
		assert.Contains(t, out, want)
	}
}
