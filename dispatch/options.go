package dispatch

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/moffa90/go-morsectl/command"
)

// TracerName is the instrumentation name used with the global provider.
const TracerName = "github.com/moffa90/go-morsectl/dispatch"

// Config holds the dispatcher configuration.
type Config struct {
	// StageCallback is called on every stage transition (optional)
	StageCallback StageCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// Observer records command outcomes (optional)
	Observer Observer

	// Tracer starts one span per dispatch
	Tracer trace.Tracer

	// Registry resolves command names
	Registry *command.Registry

	// InterfaceID is copied into every command header
	InterfaceID uint16

	// Timeout bounds a single transmit; zero leaves it to the caller's context
	Timeout time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Tracer:   otel.Tracer(TracerName),
		Registry: command.Default(),
		Timeout:  5 * time.Second,
	}
}

// Option is a functional option for configuring the Dispatcher.
type Option func(*Config)

// WithStageCallback sets a callback to follow each dispatch.
func WithStageCallback(callback StageCallback) Option {
	return func(c *Config) {
		c.StageCallback = callback
	}
}

// WithLogger sets a logger for dispatch operations.
//
// Example:
//
//	d := dispatch.New(tp, dispatch.WithLogger(logging.NewAdapter(zl)))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithObserver sets the command outcome observer.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		if t != nil {
			c.Tracer = t
		}
	}
}

// WithRegistry replaces command.Default.
func WithRegistry(r *command.Registry) Option {
	return func(c *Config) {
		if r != nil {
			c.Registry = r
		}
	}
}

// WithInterfaceID sets the interface id written into headers.
func WithInterfaceID(id uint16) Option {
	return func(c *Config) {
		c.InterfaceID = id
	}
}

// WithTimeout sets the per-transmit timeout. Zero disables it.
//
// Example:
//
//	d := dispatch.New(tp, dispatch.WithTimeout(2*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.Timeout = timeout
		}
	}
}
