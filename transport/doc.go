// Package transport carries command frames between the host and the chip.
//
// # Overview
//
// A Transport owns the request and response buffers of one exchange and
// moves a complete command frame out and a confirm frame back. Backends:
//   - Loopback: hands frames to an in-process Handler such as the emulator
//   - Serial: a UART/SPI bridge wired straight to the chip
//   - Remote: a websocket link to a Server in front of the driver
//   - RateLimited: paces Send of any other transport
//
// # Basic Usage
//
//	tp := transport.NewSerial("/dev/ttyUSB0", 921600,
//	    transport.WithSerialTimeout(time.Second))
//	if err := tp.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer tp.Close()
//
//	req, _ := tp.AllocRequest(payloadLen)
//	defer tp.Release(req)
//	resp, _ := tp.AllocResponse(confirmLen)
//	defer tp.Release(resp)
//	// fill req.Header() and req.Payload(), then
//	err := tp.Send(ctx, req, resp)
//
// Most callers go through dispatch.Dispatcher instead, which does the
// buffer handling and header bookkeeping.
//
// # Bridge Frames
//
// Serial and Remote share one framing:
//
//	[SOP][TYPE|STATUS][LEN_L][LEN_H][DATA...][CHECKSUM_L][CHECKSUM_H][EOP]
//
// The checksum is the 2's complement of the 16-bit byte sum over TYPE,
// LEN and DATA. Replies carry a status byte in place of the type;
// non-zero statuses surface as *BridgeError.
//
// # Reset
//
// Transports that implement Resetter can reset the device; Reset checks
// SupportsReset first. A Remote supports reset only when its Server's
// handler does, which the Server advertises in the ResetHeader handshake
// header. SoftReset runs the register sequence over RegisterAccess:
//
//	regs, ok := transport.Registers(tp)
//	if ok {
//	    err = (&transport.SoftReset{Regs: regs}).Run(ctx)
//	}
package transport
