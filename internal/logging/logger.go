package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. format is "json" (default) or "text".
func NewLogger(level, format string) *logrus.Logger {
	return NewLoggerWithOutput(level, format, os.Stdout)
}

// NewLoggerWithOutput is NewLogger writing to out.
func NewLoggerWithOutput(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLogrusLevel(level))

	switch strings.ToLower(format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Component returns an entry tagged with the emitting component.
func Component(logger logrus.FieldLogger, name string) *logrus.Entry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("component", name)
}

// Discard returns a logger that drops everything. Used by tests and the CLI's quiet mode.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
