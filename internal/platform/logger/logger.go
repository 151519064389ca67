// Package logger builds the process logger: JSON to stdout, level from
// configuration.
package logger

import (
	"log/slog"
	"os"
)

// New returns a structured logger at the given level. Unknown level names
// fall back to info.
func New(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
