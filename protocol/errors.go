package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrShortBuffer is returned when a write does not fit the destination
	ErrShortBuffer = errors.New("protocol: buffer too small")

	// ErrTruncated is returned when a read runs past the available bytes
	ErrTruncated = errors.New("protocol: truncated data")
)

// Kind classifies a failed command for callers that only need the category.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindCapability
	KindTransport
	KindProtocol
	KindDevice
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindCapability:
		return "capability"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindDevice:
		return "device"
	default:
		return "internal"
	}
}

// KindOf returns the category of err, or KindNone for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		vErr *ValidationError
		cErr *CapabilityError
		tErr *TransportError
		pErr *ProtocolError
		dErr *DeviceError
	)
	switch {
	case errors.As(err, &vErr):
		return KindValidation
	case errors.As(err, &cErr):
		return KindCapability
	case errors.As(err, &tErr):
		return KindTransport
	case errors.As(err, &pErr):
		return KindProtocol
	case errors.As(err, &dErr):
		return KindDevice
	default:
		return KindInternal
	}
}

// ValidationError indicates caller input was rejected before any I/O.
type ValidationError struct {
	// Command is the command being built
	Command string

	// Field is the offending argument
	Field string

	// Reason describes the violated rule
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid argument: %s", e.Command, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Command, e.Field, e.Reason)
}

// CapabilityError indicates the command is not allowed on the current
// transport or session state.
type CapabilityError struct {
	Command string
	Reason  string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: not available: %s", e.Command, e.Reason)
}

// TransportError wraps an I/O failure reported by a transport.
type TransportError struct {
	// Op is the transport operation that failed
	Op string

	// Err is the underlying cause
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates a malformed or unexpected confirm.
type ProtocolError struct {
	Command string
	Reason  string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: protocol error: %s: %v", e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: protocol error: %s", e.Command, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DeviceError carries a non-zero status returned by the firmware.
type DeviceError struct {
	// Command is the command that failed
	Command string

	// Status is the firmware return code
	Status Status
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed: %s (%d)", e.Command, e.Status, int32(e.Status))
}

// Unwrap exposes the status so errors.Is(err, StatusInvalidArgument) works.
func (e *DeviceError) Unwrap() error {
	return e.Status
}

// IsDeviceError returns true if err wraps a DeviceError.
func IsDeviceError(err error) bool {
	var dErr *DeviceError
	return errors.As(err, &dErr)
}
