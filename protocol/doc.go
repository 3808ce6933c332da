// Package protocol implements the host/firmware command wire format used by
// Morse Micro wireless chips.
//
// Every message starts with a fixed 12-byte header; confirms add a signed
// 32-bit status before their payload:
//
//	Command:  [FLAGS(2)][MSG_ID(2)][LEN(2)][HOST_ID(2)][VIF_ID(2)][PAD(2)][PAYLOAD...]
//	Response: [FLAGS(2)][MSG_ID(2)][LEN(2)][HOST_ID(2)][VIF_ID(2)][PAD(2)][STATUS(4)][PAYLOAD...]
//
// Where:
//   - All multi-byte integers are little-endian regardless of host byte order
//   - LEN counts payload bytes only (the header is excluded)
//   - HOST_ID is a host sequence number echoed by the firmware
//   - VIF_ID selects the interface the command applies to
//
// Structures are packed: there is never padding between fields.
//
// # Field Codecs
//
// Payloads are written and read field by field through a cursor:
//
//	w := protocol.NewWriter(buf)
//	w.U8(queue)
//	w.U16(cwMin)
//	if err := w.Err(); err != nil {
//	    return err
//	}
//
//	r := protocol.NewReader(payload)
//	freq := r.U32()
//	bw := r.U8()
//
// # Responses
//
// ParseResponse checks the confirm header against the request that produced
// it and only exposes payload bytes when the firmware reported success:
//
//	hdr, payload, err := protocol.ParseResponse(frame, request)
//	var devErr *protocol.DeviceError
//	if errors.As(err, &devErr) {
//	    // devErr.Status holds the firmware return code
//	}
//
// # Errors
//
// Failures are classified as ValidationError, CapabilityError,
// TransportError, ProtocolError or DeviceError so callers can tell local input
// problems from link problems and firmware refusals.
package protocol
