// Package dispatch runs control commands against a chip.
//
// # Overview
//
// A Dispatcher ties a transport.Transport to the command registry. For
// every command it:
//   - checks that the command is known and allowed on the transport
//   - encodes the request into a transport-owned buffer and fills the header
//   - sends the frame and waits for the confirm
//   - validates the confirm header and decodes the payload
//
// # Basic Usage
//
//	tp := transport.NewSerial("/dev/ttyUSB0", 921600)
//	d := dispatch.New(tp)
//	if err := d.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	v, err := dispatch.Call[*command.Version](ctx, d, command.NameVersion, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v.Version)
//
// # Stage Tracking
//
// Each dispatch walks Idle, CapabilityCheck, Build, Transmit and Parse and
// ends in Done or Failed. Follow it with a callback:
//
//	d := dispatch.New(tp,
//	    dispatch.WithStageCallback(func(e dispatch.Event) {
//	        fmt.Printf("[%s] %s\n", e.Command, e.Stage)
//	    }),
//	)
//
// # Error Handling
//
// Failures use the protocol error types; protocol.KindOf classifies them:
//   - protocol.ValidationError: argument rejected before any I/O
//   - protocol.CapabilityError: command not allowed on this transport
//   - protocol.TransportError: the transport failed to carry the frame
//   - protocol.ProtocolError: the confirm was malformed
//   - protocol.DeviceError: the firmware returned a failure status
//
// Device errors unwrap to their status:
//
//	if errors.Is(err, protocol.StatusInvalidArgument) {
//	    // firmware rejected the arguments
//	}
//
// # Observability
//
// WithLogger, WithObserver and WithTracer attach logging, metrics and
// OpenTelemetry spans. Spans come from the global tracer provider unless
// a tracer is given.
package dispatch
