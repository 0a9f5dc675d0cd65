package logging

import (
	"context"
	"fmt"
	"regexp"
	"runtime"

	"github.com/sirupsen/logrus"
)

// ansiRegex matches ANSI escape sequences for stripping
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// UnifiedLogger writes each message twice: styled for the person running the
// CLI and structured for the component log.
type UnifiedLogger struct {
	component  string
	pretty     *PrettyLogger
	structured *logrus.Entry
}

// NewUnifiedLogger creates a unified logger for a component.
func NewUnifiedLogger(component string) *UnifiedLogger {
	return &UnifiedLogger{
		component:  component,
		pretty:     NewPrettyLogger(),
		structured: NewLogger(component),
	}
}

func (u *UnifiedLogger) entry(level logrus.Level, msg, icon, status string) *LogEntry {
	fields := logrus.Fields{}
	if status != "" {
		fields["status"] = status
	}
	return &LogEntry{logger: u, msg: msg, level: level, fields: fields, icon: icon}
}

// Debug returns an entry at DEBUG level. Its pretty output is muted.
func (u *UnifiedLogger) Debug(msg string) *LogEntry {
	return u.entry(logrus.DebugLevel, msg, "", "")
}

// Info returns an entry at INFO level.
func (u *UnifiedLogger) Info(msg string) *LogEntry {
	return u.entry(logrus.InfoLevel, msg, "", "")
}

// Warn returns an entry at WARN level.
func (u *UnifiedLogger) Warn(msg string) *LogEntry {
	return u.entry(logrus.WarnLevel, msg, IconWarning, "")
}

// Error returns an entry at ERROR level.
func (u *UnifiedLogger) Error(msg string) *LogEntry {
	return u.entry(logrus.ErrorLevel, msg, IconError, "")
}

// Success returns an INFO entry marked status=success.
func (u *UnifiedLogger) Success(msg string) *LogEntry {
	return u.entry(logrus.InfoLevel, msg, IconSuccess, "success")
}

// Progress returns an INFO entry marked status=progress.
func (u *UnifiedLogger) Progress(msg string) *LogEntry {
	return u.entry(logrus.InfoLevel, msg, IconRunning, "progress")
}

// Status returns an INFO entry marked status=info.
func (u *UnifiedLogger) Status(msg string) *LogEntry {
	return u.entry(logrus.InfoLevel, msg, IconInfo, "info")
}

// LogEntry accumulates options until Log writes it.
type LogEntry struct {
	logger     *UnifiedLogger
	msg        string
	level      logrus.Level
	fields     logrus.Fields
	icon       string
	prettyMsg  string
	prettyOnly bool
	structOnly bool
	noIcon     bool
	err        error
}

// Field adds a structured field.
func (e *LogEntry) Field(key string, value interface{}) *LogEntry {
	e.fields[key] = value
	return e
}

// Fields adds multiple structured fields.
func (e *LogEntry) Fields(fields map[string]interface{}) *LogEntry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// Err attaches an error as the "error" field.
func (e *LogEntry) Err(err error) *LogEntry {
	if err != nil {
		e.err = err
		e.fields["error"] = err.Error()
	}
	return e
}

// Icon overrides the default icon.
func (e *LogEntry) Icon(icon string) *LogEntry {
	e.icon = icon
	return e
}

// NoIcon suppresses the icon in pretty output.
func (e *LogEntry) NoIcon() *LogEntry {
	e.noIcon = true
	return e
}

// Pretty replaces the styled text shown to the user. The structured log
// always keeps the plain message.
func (e *LogEntry) Pretty(styled string) *LogEntry {
	e.prettyMsg = styled
	return e
}

// PrettyOnly skips structured output.
func (e *LogEntry) PrettyOnly() *LogEntry {
	e.prettyOnly = true
	return e
}

// StructuredOnly skips pretty output.
func (e *LogEntry) StructuredOnly() *LogEntry {
	e.structOnly = true
	return e
}

// Log writes the entry. Pretty output goes to the writer carried by ctx
// (see WithWriter), falling back to the global output.
func (e *LogEntry) Log(ctx context.Context) {
	prettyOutput := e.render()

	if !e.structOnly {
		fmt.Fprintln(GetWriter(ctx), prettyOutput)
	}
	if !e.prettyOnly {
		e.logStructured(prettyOutput)
	}
}

func (e *LogEntry) render() string {
	if e.prettyMsg != "" {
		return e.prettyMsg
	}

	output := e.msg
	if !e.noIcon {
		icon := e.icon
		if icon == "" {
			icon = IconBullet
		}
		output = icon + " " + e.msg
	}

	styles := DefaultPrettyStyles()
	switch {
	case e.level == logrus.WarnLevel:
		return styles.Warning.Render(output)
	case e.level == logrus.ErrorLevel:
		return styles.Error.Render(output)
	case e.level == logrus.DebugLevel:
		return styles.Key.Render(output)
	case e.icon == IconSuccess:
		return styles.Success.Render(output)
	case e.icon == IconRunning, e.icon == IconInfo:
		return styles.Info.Render(output)
	}
	return output
}

func (e *LogEntry) logStructured(prettyOutput string) {
	// skip: 0=logStructured, 1=Log, 2=call site
	if pc, file, line, ok := runtime.Caller(2); ok {
		e.fields["file"] = fmt.Sprintf("%s:%d", file, line)
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.fields["func"] = fn.Name()
		}
	}
	e.fields["pretty_text"] = ansiRegex.ReplaceAllString(prettyOutput, "")

	e.logger.structured.WithFields(e.fields).Log(e.level, e.msg)
}

// Component returns the component name for this logger.
func (u *UnifiedLogger) Component() string {
	return u.component
}

// WithStructured returns the underlying logrus entry.
func (u *UnifiedLogger) WithStructured() *logrus.Entry {
	return u.structured
}

// WithPretty returns the underlying PrettyLogger.
func (u *UnifiedLogger) WithPretty() *PrettyLogger {
	return u.pretty
}
