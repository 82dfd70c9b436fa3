package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New creates a slog logger configured at the provided level. format "text"
// selects a coloured console handler for local development; anything else
// yields JSON on stdout. If the level string is invalid it defaults to info.
func New(level, format string) *slog.Logger {
	return newLogger(os.Stdout, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
