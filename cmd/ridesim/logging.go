package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ridesim/internal/config"
)

// setupLogging builds the process logger. With the terminal view on, logs go
// to ridesim.log so they do not tear the screen.
func setupLogging(cfg *config.Config) (zerolog.Logger, func()) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var out io.Writer = os.Stderr
	closer := func() {}
	if cfg.RenderTerminal {
		f, err := os.OpenFile("ridesim.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			out = io.Discard
		} else {
			out = f
			closer = func() { _ = f.Close() }
		}
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.RenderTerminal,
		}
	}

	log := zerolog.New(out).With().Timestamp().Str("service", "ridesim").Logger()
	log.Info().Str("loglevel", level.String()).Msg("Logging set up")
	return log, closer
}
