package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/moffa90/go-morsectl/command"
	"github.com/moffa90/go-morsectl/protocol"
	"github.com/moffa90/go-morsectl/transport"
)

// ResetCommand is the name reported to callbacks, logs and observers for Reset.
const ResetCommand = "reset"

// Dispatcher sends registered commands over a transport and decodes their
// confirms. It owns the host sequence counter for the transport.
//
// Dispatcher is safe for concurrent use; commands are serialized because
// a transport carries one command at a time.
type Dispatcher struct {
	tp     transport.Transport
	config Config

	mu   sync.Mutex
	open bool
	seq  uint16
}

// New creates a Dispatcher over tp.
//
// Example:
//
//	tp := transport.NewSerial("/dev/ttyUSB0", 921600)
//	d := dispatch.New(tp,
//	    dispatch.WithInterfaceID(0),
//	    dispatch.WithLogger(logger),
//	)
func New(tp transport.Transport, opts ...Option) *Dispatcher {
	if tp == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Dispatcher{
		tp:     tp,
		config: cfg,
	}
}

// Transport returns the transport the dispatcher sends on.
func (d *Dispatcher) Transport() transport.Transport {
	return d.tp
}

// Registry returns the registry commands are resolved against.
func (d *Dispatcher) Registry() *command.Registry {
	return d.config.Registry
}

// Open opens the transport. Commands that need an interface are rejected
// until Open succeeds.
func (d *Dispatcher) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}
	if err := d.tp.Open(ctx); err != nil {
		return &protocol.TransportError{Op: "open", Err: err}
	}
	d.open = true
	d.logDebug("transport open", "transport", string(d.tp.Kind()))
	return nil
}

// Close closes the transport.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	d.open = false
	if err := d.tp.Close(); err != nil {
		return &protocol.TransportError{Op: "close", Err: err}
	}
	return nil
}

// Available reports whether desc can be dispatched on this transport,
// ignoring whether the interface is open.
func (d *Dispatcher) Available(desc command.Descriptor) bool {
	return desc.DirectChip || !d.tp.DirectChip()
}

// Run dispatches the named command and returns its decoded confirm.
//
// The dispatch walks Idle, CapabilityCheck, Build, Transmit and Parse,
// ending in Done or Failed. Validation and capability failures never
// reach the transport. Buffers are released on every path. There is no
// retry; a failed command is reported once.
//
// req may be nil for commands without a request payload.
func (d *Dispatcher) Run(ctx context.Context, name string, req command.Request) (command.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	ctx, span := d.config.Tracer.Start(ctx, "morsectl "+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("morsectl.command", name),
			attribute.String("morsectl.transport", string(d.tp.Kind())),
		),
	)
	defer span.End()

	d.report(Event{Command: name, Stage: StageIdle})

	resp, err := d.run(ctx, span, name, req, start)
	elapsed := time.Since(start)
	d.finish(span, name, err, elapsed)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (d *Dispatcher) run(ctx context.Context, span trace.Span, name string, req command.Request, start time.Time) (command.Response, error) {
	// Capability check
	d.enter(name, StageCapabilityCheck, start)
	desc, err := d.check(name, req)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = desc.NewRequest()
	}
	span.SetAttributes(attribute.Int("morsectl.message_id", int(desc.ID)))

	// Build
	d.enter(name, StageBuild, start)
	if w, ok := req.(command.Warner); ok {
		for _, warning := range w.Warnings() {
			d.logWarn("argument ignored", "command", name, "warning", warning)
		}
	}

	resp := desc.NewResponse()
	reqBuf, err := d.tp.AllocRequest(req.MaxPayloadSize())
	if err != nil {
		return nil, &protocol.TransportError{Op: "alloc request", Err: err}
	}
	defer d.tp.Release(reqBuf)

	respBuf, err := d.tp.AllocResponse(resp.PayloadSize())
	if err != nil {
		return nil, &protocol.TransportError{Op: "alloc response", Err: err}
	}
	defer d.tp.Release(respBuf)

	hdr, err := d.build(desc, req, reqBuf)
	if err != nil {
		return nil, err
	}
	d.logDebug("command built",
		"command", name,
		"message_id", desc.ID.String(),
		"length", hdr.Length,
		"host_seq", hdr.HostSequenceID,
	)

	// Transmit
	d.enter(name, StageTransmit, start)
	sendCtx := ctx
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}
	if err := d.tp.Send(sendCtx, reqBuf, respBuf); err != nil {
		return nil, &protocol.TransportError{Op: "send " + name, Err: err}
	}

	// Parse
	d.enter(name, StageParse, start)
	if err := d.parse(name, hdr, respBuf, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// check resolves name and applies the capability rules.
func (d *Dispatcher) check(name string, req command.Request) (command.Descriptor, error) {
	desc, ok := d.config.Registry.Lookup(name)
	if !ok {
		return command.Descriptor{}, &protocol.CapabilityError{Command: name, Reason: "unknown command"}
	}
	if req != nil {
		want := reflect.TypeOf(desc.NewRequest())
		if got := reflect.TypeOf(req); got != want {
			return desc, &protocol.ValidationError{
				Command: name,
				Reason:  fmt.Sprintf("request type %s, want %s", got, want),
			}
		}
		if v := reflect.ValueOf(req); v.Kind() == reflect.Pointer && v.IsNil() {
			return desc, &protocol.ValidationError{Command: name, Reason: "nil request"}
		}
	}
	if desc.RequiresInterface && !d.open {
		return desc, &protocol.CapabilityError{Command: name, Reason: "interface is not open"}
	}
	if !d.Available(desc) {
		return desc, &protocol.CapabilityError{
			Command: name,
			Reason:  "not supported on a direct-to-chip transport",
		}
	}
	return desc, nil
}

// build encodes req into buf and writes the header. The header length is
// the number of payload bytes actually written.
func (d *Dispatcher) build(desc command.Descriptor, req command.Request, buf *transport.Buffer) (protocol.Header, error) {
	w := protocol.NewWriter(buf.Payload())
	if err := req.Encode(w); err != nil {
		var vErr *protocol.ValidationError
		if errors.As(err, &vErr) {
			return protocol.Header{}, err
		}
		return protocol.Header{}, fmt.Errorf("%s: encode: %w", desc.Name, err)
	}
	if err := buf.SetPayloadLength(w.Len()); err != nil {
		return protocol.Header{}, fmt.Errorf("%s: encode: %w", desc.Name, err)
	}

	d.seq++
	hdr := protocol.Header{
		MessageID:      desc.ID,
		Length:         uint16(w.Len()),
		HostSequenceID: d.seq,
		InterfaceID:    d.config.InterfaceID,
	}
	if err := hdr.Put(buf.Header()); err != nil {
		return protocol.Header{}, fmt.Errorf("%s: encode header: %w", desc.Name, err)
	}
	return hdr, nil
}

// parse validates the confirm in buf and decodes it into resp.
func (d *Dispatcher) parse(name string, hdr protocol.Header, buf *transport.Buffer, resp command.Response) error {
	_, payload, err := protocol.ParseResponse(buf.Bytes(), hdr)
	if err != nil {
		var (
			dErr *protocol.DeviceError
			pErr *protocol.ProtocolError
		)
		switch {
		case errors.As(err, &dErr):
			dErr.Command = name
		case errors.As(err, &pErr):
			pErr.Command = name
		}
		if buf.Received() > len(buf.Bytes()) && pErr != nil {
			pErr.Reason = fmt.Sprintf("%s (confirm of %d bytes clipped to %d)", pErr.Reason, buf.Received(), len(buf.Bytes()))
		}
		return err
	}

	if len(payload) < resp.PayloadSize() {
		return &protocol.ProtocolError{
			Command: name,
			Reason:  fmt.Sprintf("confirm payload of %d bytes, expected %d", len(payload), resp.PayloadSize()),
			Err:     protocol.ErrTruncated,
		}
	}
	if err := resp.Decode(protocol.NewReader(payload[:resp.PayloadSize()])); err != nil {
		return &protocol.ProtocolError{Command: name, Reason: "decode confirm", Err: err}
	}
	return nil
}

// Reset resets the device. With soft set it runs the register soft reset
// sequence, which needs register access; otherwise it asks the transport
// for a device reset.
func (d *Dispatcher) Reset(ctx context.Context, soft bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	ctx, span := d.config.Tracer.Start(ctx, "morsectl "+ResetCommand,
		trace.WithAttributes(
			attribute.Bool("morsectl.soft_reset", soft),
			attribute.String("morsectl.transport", string(d.tp.Kind())),
		),
	)
	defer span.End()

	d.report(Event{Command: ResetCommand, Stage: StageIdle})
	err := d.reset(ctx, soft, start)
	d.finish(span, ResetCommand, err, time.Since(start))
	return err
}

func (d *Dispatcher) reset(ctx context.Context, soft bool, start time.Time) error {
	d.enter(ResetCommand, StageCapabilityCheck, start)
	if soft {
		regs, ok := transport.Registers(d.tp)
		if !ok {
			return &protocol.CapabilityError{
				Command: ResetCommand,
				Reason:  "soft reset needs register access on the transport",
			}
		}
		d.enter(ResetCommand, StageTransmit, start)
		sr := &transport.SoftReset{Regs: regs}
		if err := sr.Run(ctx); err != nil {
			return &protocol.TransportError{Op: "soft reset", Err: err}
		}
		return nil
	}

	if !d.tp.SupportsReset() {
		return &protocol.CapabilityError{
			Command: ResetCommand,
			Reason:  fmt.Sprintf("%s transport cannot reset the device", d.tp.Kind()),
		}
	}
	d.enter(ResetCommand, StageTransmit, start)
	if err := transport.Reset(ctx, d.tp); err != nil {
		return &protocol.TransportError{Op: "reset", Err: err}
	}
	return nil
}

// Call runs the named command and returns its confirm as T.
//
// Example:
//
//	v, err := dispatch.Call[*command.Version](ctx, d, command.NameVersion, nil)
func Call[T command.Response](ctx context.Context, d *Dispatcher, name string, req command.Request) (T, error) {
	var zero T
	resp, err := d.Run(ctx, name, req)
	if err != nil {
		return zero, err
	}
	typed, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("%s: confirm is %T, not %T", name, resp, zero)
	}
	return typed, nil
}

// enter reports a stage transition.
func (d *Dispatcher) enter(name string, stage Stage, start time.Time) {
	d.report(Event{Command: name, Stage: stage, Elapsed: time.Since(start)})
}

// finish records the outcome of a dispatch on every sink.
func (d *Dispatcher) finish(span trace.Span, name string, err error, elapsed time.Duration) {
	if d.config.Observer != nil {
		d.config.Observer.ObserveCommand(name, err, elapsed)
	}

	if err != nil {
		kind := protocol.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("morsectl.error_kind", kind.String()))
		d.report(Event{Command: name, Stage: StageFailed, Kind: kind, Err: err, Elapsed: elapsed})
		d.logError("command failed", "command", name, "kind", kind.String(), "error", err)
		return
	}

	span.SetStatus(codes.Ok, "")
	d.report(Event{Command: name, Stage: StageDone, Elapsed: elapsed})
	d.logInfo("command complete", "command", name, "elapsed", elapsed.String())
}

// report calls the stage callback if configured.
func (d *Dispatcher) report(e Event) {
	if d.config.StageCallback != nil {
		d.config.StageCallback(e)
	}
}

// logDebug logs a debug message if a logger is configured.
func (d *Dispatcher) logDebug(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (d *Dispatcher) logInfo(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Info(msg, keysAndValues...)
	}
}

func (d *Dispatcher) logWarn(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Warn(msg, keysAndValues...)
	}
}

func (d *Dispatcher) logError(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, keysAndValues...)
	}
}
