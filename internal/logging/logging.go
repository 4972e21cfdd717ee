// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and output. An unknown level falls back to info.
func Setup(level string, pretty bool) {
	setup(os.Stderr, level, pretty)
}

func setup(w io.Writer, level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(level))
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// CronLogger adapts a zerolog logger to cron.Logger.
type CronLogger struct {
	Logger zerolog.Logger
}

func NewCronLogger() CronLogger {
	return CronLogger{Logger: log.With().Str("component", "cron").Logger()}
}

// Info is used by cron for schedule/run chatter, so it is logged at debug.
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug().Fields(fields(keysAndValues)).Msg(msg)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Logger.Error().Err(err).Fields(fields(keysAndValues)).Msg(msg)
}

func fields(kv []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[k] = kv[i+1]
	}
	return m
}
