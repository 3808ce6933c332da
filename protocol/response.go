package protocol

import "fmt"

// EncodeRequest writes a header followed by payload into a new frame.
// The header length is taken from the payload.
func EncodeRequest(h Header, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrShortBuffer, len(payload), MaxPayloadSize)
	}
	h.Length = uint16(len(payload))
	frame := make([]byte, HeaderSize+len(payload))
	if err := h.Put(frame); err != nil {
		return nil, err
	}
	copy(frame[HeaderSize:], payload)
	return frame, nil
}

// EncodeResponse writes a confirm header followed by payload into a new frame.
// The header length is taken from the payload.
func EncodeResponse(h ResponseHeader, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrShortBuffer, len(payload), MaxPayloadSize)
	}
	h.Length = uint16(len(payload))
	frame := make([]byte, ResponseHeaderSize+len(payload))
	if err := h.Put(frame); err != nil {
		return nil, err
	}
	copy(frame[ResponseHeaderSize:], payload)
	return frame, nil
}

// ParseResponse validates a confirm frame against the request header that
// produced it and returns the confirm header and payload.
//
// Checks, in order:
//   - the frame holds a complete confirm header
//   - MSG_ID and HOST_ID match the request
//   - STATUS is StatusSuccess
//   - LEN does not exceed the bytes received
//
// When the status is not success a *DeviceError is returned and the payload
// is nil: payload bytes are undefined on failure.
func ParseResponse(frame []byte, req Header) (ResponseHeader, []byte, error) {
	name := req.MessageID.String()

	h, err := DecodeResponseHeader(frame)
	if err != nil {
		return ResponseHeader{}, nil, &ProtocolError{Command: name, Reason: "short confirm", Err: err}
	}

	if h.MessageID != req.MessageID {
		return h, nil, &ProtocolError{
			Command: name,
			Reason:  fmt.Sprintf("unexpected message id %s", h.MessageID),
		}
	}

	if h.HostSequenceID != req.HostSequenceID {
		return h, nil, &ProtocolError{
			Command: name,
			Reason:  fmt.Sprintf("sequence mismatch: got %d, expected %d", h.HostSequenceID, req.HostSequenceID),
		}
	}

	if h.Status != StatusSuccess {
		return h, nil, &DeviceError{Command: name, Status: h.Status}
	}

	available := len(frame) - ResponseHeaderSize
	if int(h.Length) > available {
		return h, nil, &ProtocolError{
			Command: name,
			Reason:  fmt.Sprintf("length %d exceeds %d received payload bytes", h.Length, available),
			Err:     ErrTruncated,
		}
	}

	return h, frame[ResponseHeaderSize : ResponseHeaderSize+int(h.Length)], nil
}
