package transport

import (
	"context"
	"errors"
)

// Kind names a transport backend.
type Kind string

const (
	KindLoopback Kind = "loopback"
	KindSerial   Kind = "serial"
	KindRemote   Kind = "remote"
)

var (
	// ErrNotOpen is returned by Send before Open or after Close
	ErrNotOpen = errors.New("transport: not open")

	// ErrResetUnsupported is returned by ResetDevice on transports without reset
	ErrResetUnsupported = errors.New("transport: reset not supported")

	// ErrReleased is returned when a released buffer is used
	ErrReleased = errors.New("transport: buffer already released")
)

// Transport carries one command frame to the device and its confirm back.
//
// Exactly one Send may be in flight per transport. Buffers returned by
// AllocRequest and AllocResponse must be handed back with Release once.
type Transport interface {
	Kind() Kind

	Open(ctx context.Context) error
	Close() error

	// AllocRequest returns a zeroed buffer with room for a header and
	// payloadCap bytes of payload.
	AllocRequest(payloadCap int) (*Buffer, error)

	// AllocResponse returns a buffer with room for a confirm header and
	// payloadCap bytes of payload.
	AllocResponse(payloadCap int) (*Buffer, error)

	// Send transmits req and blocks until resp holds the confirm or the
	// transport fails.
	Send(ctx context.Context, req, resp *Buffer) error

	Release(b *Buffer)

	// SupportsReset reports whether ResetDevice is available.
	SupportsReset() bool

	// DirectChip reports whether the transport talks to the chip without
	// the driver in between.
	DirectChip() bool
}

// Resetter is implemented by transports that can reset the device.
type Resetter interface {
	ResetDevice(ctx context.Context) error
}

// RegisterAccess is implemented by transports that can poke chip registers.
type RegisterAccess interface {
	ReadRegister(ctx context.Context, addr uint32) (uint32, error)
	WriteRegister(ctx context.Context, addr, value uint32) error
}

// Reset runs the device reset of t, or returns ErrResetUnsupported.
func Reset(ctx context.Context, t Transport) error {
	r, ok := t.(Resetter)
	if !t.SupportsReset() || !ok {
		return ErrResetUnsupported
	}
	return r.ResetDevice(ctx)
}
