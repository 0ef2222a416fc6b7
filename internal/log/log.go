// Package log provides the process-wide structured logger.
//
// All calls take a message followed by alternating key/value pairs:
//
//	log.Info("Connected", "url", serverURL)
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/paularlott/logger"
	logslog "github.com/paularlott/logger/slog"
)

var (
	mu      sync.RWMutex
	current logger.Logger = logslog.New(logslog.Config{
		Level:  "info",
		Format: "console",
		Writer: os.Stderr,
	})
)

// Configure replaces the global logger writing to stderr.
func Configure(level, format string) {
	ConfigureWriter(level, format, os.Stderr)
}

// ConfigureWriter replaces the global logger writing to w.
func ConfigureWriter(level, format string, w io.Writer) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" {
		format = "console"
	}

	l := logslog.New(logslog.Config{
		Level:  level,
		Format: format,
		Writer: w,
	})

	mu.Lock()
	current = l
	mu.Unlock()
}

// Discard silences all logging; the terminal dashboard uses it when no log file is set.
func Discard() {
	ConfigureWriter("error", "console", io.Discard)
}

// Logger returns the current global logger.
func Logger() logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func Trace(msg string, keysAndValues ...any) { Logger().Trace(msg, keysAndValues...) }
func Debug(msg string, keysAndValues ...any) { Logger().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { Logger().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { Logger().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { Logger().Error(msg, keysAndValues...) }
