package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. The level starts at debug so that
// config loading itself is visible; main lowers it once the configured level
// is known.
func New() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(zerolog.DebugLevel)
}

// WithLevel returns the logger clamped to the named level; unknown names keep
// info.
func WithLevel(logger zerolog.Logger, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return logger.Level(parsed)
}
