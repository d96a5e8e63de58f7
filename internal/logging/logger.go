// Package logging builds the logrus loggers used across the verifier.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at the given level.
func New(level string, verbose bool) *logrus.Logger {
	return NewWithWriter(os.Stderr, level, verbose)
}

func NewWithWriter(w io.Writer, level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logger.SetLevel(ParseLevel(level, verbose))
	return logger
}

// ParseLevel maps a config level name to a logrus level. Unknown names fall
// back to info, or debug when verbose is set.
func ParseLevel(level string, verbose bool) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		if verbose {
			return logrus.DebugLevel
		}
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		if verbose {
			return logrus.DebugLevel
		}
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
