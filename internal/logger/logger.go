// Package logger provides the process-wide structured logger.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger with a console writer on stdout.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		level := zerolog.InfoLevel
		if os.Getenv("INKFORGE_DEBUG") != "" {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
		defaultLogger.Info().Msg("logger initialized")
	})
}

// Get returns the initialized default logger.
// It calls Init() to ensure the logger is ready before returning it.
func Get() *zerolog.Logger {
	Init()
	return &defaultLogger
}

// Info logs an informational message using the default logger.
func Info(msg string, fields map[string]any) {
	withFields(Get().Info(), fields).Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, fields map[string]any) {
	withFields(Get().Warn(), fields).Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, fields map[string]any) {
	ev := Get().Error()
	if err != nil {
		ev = ev.Err(err)
	}
	withFields(ev, fields).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, fields map[string]any) {
	withFields(Get().Debug(), fields).Msg(msg)
}

func withFields(ev *zerolog.Event, fields map[string]any) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}
