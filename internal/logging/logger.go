package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/config"
)

// NewLogger creates a structured zerolog.Logger. Development mode switches
// to the human-readable console writer.
func NewLogger(cfg *config.Config) zerolog.Logger {
	var ctx zerolog.Context
	if cfg.DevMode {
		ctx = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp()
	} else {
		ctx = zerolog.New(os.Stdout).With().Timestamp()
	}

	ctx = ctx.Str("service", "oportunia-api")

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
