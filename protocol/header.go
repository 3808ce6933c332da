package protocol

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed command header shared by requests and confirms.
type Header struct {
	// Flags are used between host and firmware
	Flags uint16

	// MessageID is the command identifier
	MessageID CommandID

	// Length is the payload length, excluding the header
	Length uint16

	// HostSequenceID is set by the host and echoed in the confirm
	HostSequenceID uint16

	// InterfaceID is set by the host and copied into the confirm
	InterfaceID uint16

	// Pad is reserved and always zero on the wire
	Pad uint16
}

// ResponseHeader is a confirm header: the command header plus the status word.
type ResponseHeader struct {
	Header
	Status Status
}

// Put writes the header into the first HeaderSize bytes of dst.
//
// Layout (little-endian):
//
//	[FLAGS(2)][MSG_ID(2)][LEN(2)][HOST_ID(2)][VIF_ID(2)][PAD(2)]
func (h Header) Put(dst []byte) error {
	if len(dst) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, have %d", ErrShortBuffer, HeaderSize, len(dst))
	}
	binary.LittleEndian.PutUint16(dst[0:2], h.Flags)
	binary.LittleEndian.PutUint16(dst[2:4], uint16(h.MessageID))
	binary.LittleEndian.PutUint16(dst[4:6], h.Length)
	binary.LittleEndian.PutUint16(dst[6:8], h.HostSequenceID)
	binary.LittleEndian.PutUint16(dst[8:10], h.InterfaceID)
	binary.LittleEndian.PutUint16(dst[10:12], h.Pad)
	return nil
}

// Put writes the confirm header including status into dst.
func (h ResponseHeader) Put(dst []byte) error {
	if len(dst) < ResponseHeaderSize {
		return fmt.Errorf("%w: response header needs %d bytes, have %d",
			ErrShortBuffer, ResponseHeaderSize, len(dst))
	}
	if err := h.Header.Put(dst); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst[12:16], uint32(h.Status))
	return nil
}

// DecodeHeader extracts a command header from the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(b))
	}
	return Header{
		Flags:          binary.LittleEndian.Uint16(b[0:2]),
		MessageID:      CommandID(binary.LittleEndian.Uint16(b[2:4])),
		Length:         binary.LittleEndian.Uint16(b[4:6]),
		HostSequenceID: binary.LittleEndian.Uint16(b[6:8]),
		InterfaceID:    binary.LittleEndian.Uint16(b[8:10]),
		Pad:            binary.LittleEndian.Uint16(b[10:12]),
	}, nil
}

// DecodeResponseHeader extracts a confirm header from the start of b.
func DecodeResponseHeader(b []byte) (ResponseHeader, error) {
	if len(b) < ResponseHeaderSize {
		return ResponseHeader{}, fmt.Errorf("%w: response header needs %d bytes, have %d",
			ErrTruncated, ResponseHeaderSize, len(b))
	}
	h, err := DecodeHeader(b)
	if err != nil {
		return ResponseHeader{}, err
	}
	return ResponseHeader{
		Header: h,
		Status: Status(int32(binary.LittleEndian.Uint32(b[12:16]))),
	}, nil
}
