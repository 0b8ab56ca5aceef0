// Package logger configures the process-wide zerolog logger and
// provides adapters for components that log on behalf of something
// else (a user-supplied callback) rather than on behalf of the
// package itself.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global zerolog level and output writer. level is one
// of "debug", "info", "warn", "error" (default "info" on anything
// else); format "pretty" switches to a human-readable console writer,
// anything else (including "json", the default) leaves the global
// logger's output as it is (zerolog's native JSON on stderr unless
// changed earlier).
func Init(level, format string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if strings.ToLower(format) == "pretty" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	log.Info().Str("level", level).Str("format", format).Msg("logging configured")
}

// CallbackLogger tags every line written through it with the name of
// the action or event pattern whose user callback produced it, the
// way a misbehaving callback's stray fmt.Println or panic recovery
// output would otherwise show up in the log with no indication of
// which subscription caused it. Source distinguishes "action" from
// "event" callbacks; Name is the ActionID or event pattern.
type CallbackLogger struct {
	Source string // "action" or "event"
	Name   string
}

// NewCallbackLogger builds a CallbackLogger for the given source/name pair.
func NewCallbackLogger(source, name string) *CallbackLogger {
	return &CallbackLogger{Source: source, Name: name}
}

// Write implements io.Writer so a CallbackLogger can be handed to
// anything that writes plain-text lines (a recovered panic's stack
// trace, for instance).
func (c *CallbackLogger) Write(data []byte) (int, error) {
	message := strings.TrimRight(string(data), "\n")
	log.Error().
		Str("callback_source", c.Source).
		Str("callback_name", c.Name).
		Msg(message)
	return len(data), nil
}
