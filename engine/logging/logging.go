// Package logging provides the process-wide structured logger shared by the decoder packages.
package logging

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

// Logger returns the shared logger, creating it on first use.
// Output goes to stderr with RFC3339 timestamps and an "oxy-glb" prefix, at info level.
//
// Returns:
//   - *log.Logger: the process logger
func Logger() *log.Logger {
	once.Do(func() {
		singleton = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "oxy-glb",
			Level:           log.InfoLevel,
		})
	})
	return singleton
}

// SetLevel changes the shared logger's level from its string name ("debug", "info", "warn", "error").
// An empty string leaves the level untouched.
//
// Parameters:
//   - level: the level name
//
// Returns:
//   - error: error if the level name is not recognized
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger().SetLevel(lvl)
	return nil
}

func Debug(msg string, keyvals ...any) {
	Logger().Helper()
	Logger().Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...any) {
	Logger().Helper()
	Logger().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...any) {
	Logger().Helper()
	Logger().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...any) {
	Logger().Helper()
	Logger().Error(msg, keyvals...)
}

// Fatal logs at error level and exits the process.
func Fatal(msg string, keyvals ...any) {
	Logger().Helper()
	Logger().Fatal(msg, keyvals...)
}
