package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/recorder/config"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// levelOverride is set by SetLevel and wins over env and config.
	levelOverride *logrus.Level
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logCfg := loadConfig()

	// Configure Level
	levelStr := "info"
	if os.Getenv("RECORDER_LOG_LEVEL") != "" {
		levelStr = os.Getenv("RECORDER_LOG_LEVEL")
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	if levelOverride != nil {
		level = *levelOverride
	}
	logger.SetLevel(level)

	// Configure Caller Reporting
	if os.Getenv("RECORDER_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	// Configure Formatter
	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	var writers []io.Writer

	// File sink, only when enabled
	if logCfg.File.Enabled {
		logFilePath := logCfg.File.Path
		if logFilePath != "" {
			logFilePath = expandPath(logFilePath)
		} else if cwd, err := os.Getwd(); err == nil {
			dateStr := time.Now().Format("2006-01-02")
			logFilePath = filepath.Join(cwd, ".recorder", "logs", fmt.Sprintf("%s-%s.log", component, dateStr))
		}
		if logFilePath != "" {
			writers = append(writers, newFileSink(logFilePath))
		}
	}

	stderrMode := "auto"
	if logCfg.Format.StructuredToStderr != "" {
		stderrMode = logCfg.Format.StructuredToStderr
	}

	shouldLogToStderr := false
	switch stderrMode {
	case "always":
		shouldLogToStderr = true
	case "never":
		shouldLogToStderr = false
	default:
		// Structured logs reach stderr in debug mode or when stderr is not a terminal.
		isDebug := os.Getenv("RECORDER_DEBUG") == "1" || logger.GetLevel() >= logrus.DebugLevel
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		shouldLogToStderr = isDebug || !isInteractive
	}

	if shouldLogToStderr {
		writers = append(writers, GetGlobalOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// SetLevel changes the level of every existing component logger and of
// loggers created afterwards. Used by --verbose.
func SetLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	levelOverride = &level
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
		if level >= logrus.DebugLevel && entry.Logger.Out == io.Discard {
			entry.Logger.SetOutput(GetGlobalOutput())
		}
	}
}

// SetFormatter replaces the formatter of every existing component logger.
// Used by --json.
func SetFormatter(formatter logrus.Formatter) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, entry := range loggers {
		entry.Logger.SetFormatter(formatter)
	}
}

// Reset drops all cached component loggers.
func Reset() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	loggers = make(map[string]*logrus.Entry)
	levelOverride = nil
}

// loadConfig reads the logging section of the nearest recorder.yml. Any
// problem with the file leaves the defaults in place.
func loadConfig() Config {
	var logCfg Config

	cwd, err := os.Getwd()
	if err != nil {
		return logCfg
	}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	cfg, err := config.LoadFromWithLogger(cwd, quiet)
	if err != nil {
		return logCfg
	}
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		logrus.Warnf("Failed to parse 'logging' config: %v", err)
	}
	return logCfg
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
