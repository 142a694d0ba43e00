package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. Production logs JSON at info level,
// everything else gets a human-readable console writer at debug level.
func New(env string) zerolog.Logger {
	if env == "production" {
		return zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}
