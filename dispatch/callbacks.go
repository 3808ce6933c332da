package dispatch

import (
	"time"

	"github.com/moffa90/go-morsectl/protocol"
)

// Stage is a step of a single command dispatch.
type Stage int

// Dispatch stages, in order. A dispatch ends in StageDone or StageFailed.
const (
	StageIdle Stage = iota
	StageCapabilityCheck
	StageBuild
	StageTransmit
	StageParse
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCapabilityCheck:
		return "capability-check"
	case StageBuild:
		return "build"
	case StageTransmit:
		return "transmit"
	case StageParse:
		return "parse"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes a stage transition. Passed to StageCallback.
type Event struct {
	// Command is the registry name of the command, or "reset"
	Command string

	// Stage is the stage being entered
	Stage Stage

	// Kind classifies the failure when Stage is StageFailed
	Kind protocol.Kind

	// Err is the failure when Stage is StageFailed
	Err error

	// Elapsed is the time since the dispatch started
	Elapsed time.Duration
}

// StageCallback is called on every stage transition.
// Implementations should return quickly; the dispatch waits for them.
//
// Example:
//
//	d := dispatch.New(tp,
//	    dispatch.WithStageCallback(func(e dispatch.Event) {
//	        fmt.Printf("%s: %s\n", e.Command, e.Stage)
//	    }),
//	)
type StageCallback func(Event)

// Logger is an optional logging interface. This allows integration with
// any logging framework; internal/logging adapts zerolog.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Warn logs a warning with optional key-value pairs
	Warn(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

// Observer receives the outcome of every finished dispatch. The metrics
// package provides a Prometheus implementation.
type Observer interface {
	ObserveCommand(command string, err error, elapsed time.Duration)
}
