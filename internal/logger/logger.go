// Package logger provides opinionated logging for the kai CLI.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New builds a *slog.Logger from the given options. The default is an
// Info-level text handler on stderr; CLI commands usually enable the
// pretty charmbracelet handler instead.
func New(opts ...Option) *slog.Logger {
	cfg := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.writers) == 0 {
		cfg.writers = []io.Writer{os.Stderr}
	}
	w := io.MultiWriter(cfg.writers...)

	var handler slog.Handler
	switch {
	case cfg.pretty:
		level := charmlog.InfoLevel
		if cfg.level == slog.LevelDebug {
			level = charmlog.DebugLevel
		}
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           level,
			ReportCaller:    cfg.source,
			ReportTimestamp: false,
		})
	case cfg.json:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.source})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.source})
	}

	return slog.New(handler)
}
