// Package logging configures the process-wide zerolog logger.
//
// JSON output uses the field names Cloud Logging recognises in structured
// stdout logs (severity, message, time), so lines written by a deployed
// function are parsed into jsonPayload entries with the right severity.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var logger = New(os.Stdout, FormatJSON)

func init() {
	zerolog.LevelFieldName = "severity"
	zerolog.MessageFieldName = "message"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}
}

// New builds a logger writing to w in the given format. Unknown formats fall
// back to JSON.
func New(w io.Writer, format string) zerolog.Logger {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Logger()
}

// Setup replaces the process logger and sets the global minimum level.
func Setup(w io.Writer, format, level string) error {
	switch format {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	SetLevel(lvl)
	logger = New(w, format)
	log.Logger = logger
	return nil
}

// Logger returns the configured logger for injection into components.
func Logger() zerolog.Logger {
	return logger
}

func SetLevel(lvl zerolog.Level) {
	zerolog.SetGlobalLevel(lvl)
}

func Debug(msg string) {
	logger.Debug().Msg(msg)
}

func Info(msg string) {
	logger.Info().Msg(msg)
}

func Warn(msg string) {
	logger.Warn().Msg(msg)
}

func Error(msg string) {
	logger.Error().Msg(msg)
}

func Fatal(msg string) {
	logger.Fatal().Msg(msg)
}
