package utils

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger: pretty console output in
// development, JSON elsewhere. The level comes from the config, falling
// back to debug in development and info in production.
func InitLogger(environment, logLevel string) {
	zerolog.SetGlobalLevel(resolveLevel(environment, logLevel))

	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    false,
		})
	} else {
		log.Logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Str("service", "audience-sync").
			Logger()
	}

	log.Info().
		Str("level", zerolog.GlobalLevel().String()).
		Str("environment", environment).
		Msg("logger initialized")
}

func resolveLevel(environment, logLevel string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(logLevel)); err == nil && logLevel != "" {
		return parsed
	}
	if environment == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
