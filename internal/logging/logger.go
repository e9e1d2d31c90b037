package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
//
// REDO_LOG_LEVEL controls the log level: debug, info, warn, error (default: info).
// REDO_LOG_FORMAT=json keeps zerolog's native JSON lines, which is what
// CloudWatch expects; it is also forced inside Lambda. Everywhere else a
// human-readable console writer is used.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("REDO_LOG_LEVEL")))

	if os.Getenv("REDO_LOG_FORMAT") == "json" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
