package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable that sets the log level.
const LevelEnv = "COMPRESS_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// COMPRESS_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
