// Package logging holds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	current.Store(&l)
}

// GetLogger returns the configured logger.
func GetLogger() zerolog.Logger {
	return *current.Load()
}

// SetLogger replaces the process-wide logger.
func SetLogger(l zerolog.Logger) {
	current.Store(&l)
}

// Configure installs a console logger writing to w at the named level
// ("debug", "info", "warn", "error", "disabled"). An unknown level keeps
// warnings and errors.
func Configure(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger().Level(lvl)
	SetLogger(l)
	return l
}
