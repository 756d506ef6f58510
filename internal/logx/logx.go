// Package logx configures the zerolog logger shared by confab's packages.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls logger output.
type Config struct {
	Level  string
	Debug  bool
	Pretty bool
	Out    io.Writer
}

// New builds a logger from cfg and installs it as the global zerolog logger.
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	} else {
		logger = zerolog.New(out)
	}
	logger = logger.With().Timestamp().Logger().Level(ParseLevel(cfg.Level, cfg.Debug))

	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to
// warn; debug overrides everything.
func ParseLevel(name string, debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zerolog.WarnLevel
	}
	return lvl
}

// Nop returns a disabled logger, handy for tests and library defaults.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
