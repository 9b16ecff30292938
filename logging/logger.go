// Package logging provides pre-configured loggers for the dev toolkit.
package logging

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
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

	// Configure Level
	levelStr := "info"
	if v := os.Getenv("DEVSERVER_LOG_LEVEL"); v != "" {
		levelStr = v
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Configure Formatter
	switch os.Getenv("DEVSERVER_LOG_FORMAT") {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:     isInteractive,
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}

	logger.SetOutput(os.Stderr)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}
