// Package logging builds the zerolog logger used by morsectl and adapts it
// to dispatch.Logger.
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

// EnvLevel overrides the configured level when set.
const EnvLevel = "MORSECTL_LOG_LEVEL"

// Options selects the logger output.
type Options struct {
	// App is attached to every entry
	App string

	// Level is a zerolog level name; empty means info
	Level string

	// JSON writes newline-delimited JSON instead of console output
	JSON bool

	// Out defaults to os.Stderr
	Out io.Writer
}

// New builds a logger and installs it as the zerolog global logger.
func New(opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.App != "" {
		ctx = ctx.Str("app", opts.App)
	}
	logger := ctx.Logger()
	log.Logger = logger
	return logger, nil
}

// ParseLevel resolves the effective level. EnvLevel wins over name.
func ParseLevel(name string) (zerolog.Level, error) {
	if env := strings.TrimSpace(os.Getenv(EnvLevel)); env != "" {
		name = env
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return level, nil
}

// Adapter forwards key/value logging to a zerolog.Logger.
type Adapter struct {
	logger zerolog.Logger
}

// NewAdapter wraps logger.
func NewAdapter(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) Debug(msg string, kv ...interface{}) { a.emit(a.logger.Debug(), msg, kv) }
func (a *Adapter) Info(msg string, kv ...interface{})  { a.emit(a.logger.Info(), msg, kv) }
func (a *Adapter) Warn(msg string, kv ...interface{})  { a.emit(a.logger.Warn(), msg, kv) }
func (a *Adapter) Error(msg string, kv ...interface{}) { a.emit(a.logger.Error(), msg, kv) }

// emit attaches kv pairs as fields. An error value goes to the error field
// and a dangling key is logged under "extra".
func (a *Adapter) emit(ev *zerolog.Event, msg string, kv []interface{}) {
	if ev == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			ev = ev.Interface("extra", kv[i])
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		switch v := kv[i+1].(type) {
		case error:
			if key == "error" || key == "err" {
				ev = ev.Err(v)
			} else {
				ev = ev.AnErr(key, v)
			}
		case string:
			ev = ev.Str(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		case fmt.Stringer:
			ev = ev.Stringer(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
