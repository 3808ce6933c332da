package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrRegistersUnsupported is returned by register access on transports
// that cannot reach chip registers.
var ErrRegistersUnsupported = errors.New("transport: register access not supported")

// Handler answers a command frame with a confirm frame.
type Handler interface {
	HandleFrame(ctx context.Context, frame []byte) ([]byte, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, frame []byte) ([]byte, error)

func (f HandlerFunc) HandleFrame(ctx context.Context, frame []byte) ([]byte, error) {
	return f(ctx, frame)
}

// Registers returns the register access of t when it is usable.
func Registers(t Transport) (RegisterAccess, bool) {
	ra, ok := t.(RegisterAccess)
	if !ok {
		return nil, false
	}
	if c, ok := t.(interface{ SupportsRegisterAccess() bool }); ok && !c.SupportsRegisterAccess() {
		return nil, false
	}
	return ra, true
}

// Loopback delivers frames to an in-process Handler, typically the chip
// emulator. Reset and register access are available when the handler
// implements Resetter and RegisterAccess.
type Loopback struct {
	Pool

	handler    Handler
	directChip bool

	mu    sync.Mutex
	open  bool
	sends int
}

// LoopbackOption configures a Loopback.
type LoopbackOption func(*Loopback)

// WithDirectChip makes the loopback report itself as a direct-to-chip transport.
func WithDirectChip(direct bool) LoopbackOption {
	return func(l *Loopback) {
		l.directChip = direct
	}
}

// NewLoopback returns a closed loopback transport backed by h.
func NewLoopback(h Handler, opts ...LoopbackOption) *Loopback {
	l := &Loopback{handler: h}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loopback) Kind() Kind { return KindLoopback }

func (l *Loopback) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	l.open = true
	l.mu.Unlock()
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	l.open = false
	l.mu.Unlock()
	return nil
}

func (l *Loopback) Send(ctx context.Context, req, resp *Buffer) error {
	if err := checkBuffers(req, resp); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return ErrNotOpen
	}
	l.sends++

	frame := make([]byte, len(req.Frame()))
	copy(frame, req.Frame())
	reply, err := l.handler.HandleFrame(ctx, frame)
	if err != nil {
		return err
	}
	resp.Fill(reply)
	return nil
}

// Sends returns how many frames reached the handler.
func (l *Loopback) Sends() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sends
}

func (l *Loopback) SupportsReset() bool {
	_, ok := l.handler.(Resetter)
	return ok
}

func (l *Loopback) DirectChip() bool { return l.directChip }

func (l *Loopback) ResetDevice(ctx context.Context) error {
	r, ok := l.handler.(Resetter)
	if !ok {
		return ErrResetUnsupported
	}
	return r.ResetDevice(ctx)
}

// SupportsRegisterAccess reports whether the handler exposes registers.
func (l *Loopback) SupportsRegisterAccess() bool {
	_, ok := l.handler.(RegisterAccess)
	return ok
}

func (l *Loopback) ReadRegister(ctx context.Context, addr uint32) (uint32, error) {
	ra, ok := l.handler.(RegisterAccess)
	if !ok {
		return 0, ErrRegistersUnsupported
	}
	return ra.ReadRegister(ctx, addr)
}

func (l *Loopback) WriteRegister(ctx context.Context, addr, value uint32) error {
	ra, ok := l.handler.(RegisterAccess)
	if !ok {
		return ErrRegistersUnsupported
	}
	return ra.WriteRegister(ctx, addr, value)
}
