// Package logging configures the global zerolog logger for every binary.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the zerolog logger from APP_ENV and LOG_LEVEL
func Setup() {
	SetupWith(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// SetupWith configures the logger writing to out. Development gets a pretty
// console writer; an unknown level falls back to info.
func SetupWith(out io.Writer, appEnv, levelName string) zerolog.Level {
	if appEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	level := zerolog.InfoLevel
	if levelName != "" {
		parsedLevel, err := zerolog.ParseLevel(levelName)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")

	return level
}
