package log

import (
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) {
	return len(p), nil
}

// Logger is the global logger.
var Logger zerolog.Logger

func init() {
	level := zerolog.InfoLevel
	if n, err := strconv.Atoi(os.Getenv("LOG_LEVEL")); err == nil {
		level = zerolog.Level(n)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if os.Getenv("DISABLE_LOGS") == "true" {
		Logger = zerolog.New(discard{})
		return
	}
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// With returns a child logger tagged with the given component name.
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
