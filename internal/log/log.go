package log

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Package log provides the application-wide structured logger. Call sites
// pass a message plus alternating key/value pairs:
//
//	log.Info("holiday fetch done", "year", 2024, "count", len(dates))
//
// Output is zerolog JSON on stderr; setting APP_ENV=dev switches to the
// human-readable console writer.

var (
	logger     zerolog.Logger
	loggerOnce sync.Once
)

func initLogger() {
	loggerOnce.Do(func() {
		if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
			writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
			logger = zerolog.New(writer).With().Timestamp().Logger()
		} else {
			logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		}
	})
}

// SetLevel adjusts the global minimum level ("debug", "info", "warn", "error").
// Unknown values are ignored.
func SetLevel(level string) {
	initLogger()
	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	withFields(logger.Debug(), kv).Msg(msg)
}

func Info(msg string, kv ...any) {
	initLogger()
	withFields(logger.Info(), kv).Msg(msg)
}

func Warn(msg string, kv ...any) {
	initLogger()
	withFields(logger.Warn(), kv).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	withFields(logger.Error().Err(err), kv).Msg(msg)
}

// withFields appends alternating key/value pairs to an event. Keys that are
// not strings and a trailing odd value are dropped.
func withFields(ev *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
