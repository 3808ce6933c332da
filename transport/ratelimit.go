package transport

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited paces Send on an inner transport. Reset and register access
// pass through when the inner transport supports them.
type RateLimited struct {
	Transport
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond sends with the given burst. A
// non-positive rate disables pacing.
func NewRateLimited(t Transport, perSecond float64, burst int) *RateLimited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		Transport: t,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

// Send waits for a token, then forwards to the inner transport.
func (r *RateLimited) Send(ctx context.Context, req, resp *Buffer) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.Transport.Send(ctx, req, resp)
}

func (r *RateLimited) ResetDevice(ctx context.Context) error {
	return Reset(ctx, r.Transport)
}

// SupportsRegisterAccess reports whether the inner transport exposes registers.
func (r *RateLimited) SupportsRegisterAccess() bool {
	_, ok := Registers(r.Transport)
	return ok
}

func (r *RateLimited) ReadRegister(ctx context.Context, addr uint32) (uint32, error) {
	ra, ok := Registers(r.Transport)
	if !ok {
		return 0, ErrRegistersUnsupported
	}
	return ra.ReadRegister(ctx, addr)
}

func (r *RateLimited) WriteRegister(ctx context.Context, addr, value uint32) error {
	ra, ok := Registers(r.Transport)
	if !ok {
		return ErrRegistersUnsupported
	}
	return ra.WriteRegister(ctx, addr, value)
}
