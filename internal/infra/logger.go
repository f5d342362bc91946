package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide logger shared by the API and the worker.
// Development gets a console writer at debug level; everything else emits
// JSON lines for log shipping. Job and item ids travel as structured fields.
func NewLogger(appEnv string) zerolog.Logger {
	if appEnv == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}

// Logger aliases zerolog.Logger so the rest of the codebase depends on one
// logging surface instead of importing the module everywhere.
type Logger = zerolog.Logger
