package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Bridge frame delimiters and sizes.
//
// Frame structure:
//
//	[SOP][TYPE|STATUS][LEN_L][LEN_H][DATA...][CHECKSUM_L][CHECKSUM_H][EOP]
const (
	StartOfFrame = 0x01
	EndOfFrame   = 0x17

	// FrameOverhead is the number of bytes around DATA
	FrameOverhead = 7

	// MaxFrameData is the largest DATA field the 16-bit length can describe
	MaxFrameData = 0xFFFF

	checksumMask = 0xFFFF
)

// Bridge request types.
const (
	FrameCommand       byte = 0x10
	FrameReadRegister  byte = 0x11
	FrameWriteRegister byte = 0x12
	FrameReset         byte = 0x13
)

// Bridge reply status codes.
const (
	BridgeOK          byte = 0x00
	BridgeBadChecksum byte = 0x01
	BridgeBadLength   byte = 0x02
	BridgeUnknownType byte = 0x03
	BridgeChipTimeout byte = 0x04
	BridgeBusError    byte = 0x05
)

// BridgeError is a non-zero status reported by the serial bridge.
type BridgeError struct {
	Status byte
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge error 0x%02X: %s", e.Status, bridgeStatusName(e.Status))
}

func bridgeStatusName(status byte) string {
	switch status {
	case BridgeOK:
		return "ok"
	case BridgeBadChecksum:
		return "bad checksum"
	case BridgeBadLength:
		return "bad length"
	case BridgeUnknownType:
		return "unknown frame type"
	case BridgeChipTimeout:
		return "chip did not respond"
	case BridgeBusError:
		return "bus error"
	default:
		return "unknown"
	}
}

// frameChecksum is the 2's complement of the 16-bit byte sum over
// TYPE, LEN and DATA.
func frameChecksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return 1 + (checksumMask ^ sum)
}

// EncodeFrame wraps data in a bridge frame. code is the request type or,
// for replies, the status.
func EncodeFrame(code byte, data []byte) ([]byte, error) {
	if len(data) > MaxFrameData {
		return nil, fmt.Errorf("frame data of %d bytes exceeds %d", len(data), MaxFrameData)
	}

	frame := make([]byte, 0, FrameOverhead+len(data))
	frame = append(frame, StartOfFrame, code)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(data)))
	frame = append(frame, data...)

	checksum := frameChecksum(frame[1:])
	frame = binary.LittleEndian.AppendUint16(frame, checksum)
	frame = append(frame, EndOfFrame)
	return frame, nil
}

// DecodeFrame validates a complete bridge frame and returns its code and data.
func DecodeFrame(frame []byte) (code byte, data []byte, err error) {
	if len(frame) < FrameOverhead {
		return 0, nil, fmt.Errorf("frame too short: got %d bytes, minimum is %d", len(frame), FrameOverhead)
	}
	if frame[0] != StartOfFrame {
		return 0, nil, fmt.Errorf("invalid start of frame: got 0x%02X, expected 0x%02X", frame[0], StartOfFrame)
	}
	if frame[len(frame)-1] != EndOfFrame {
		return 0, nil, fmt.Errorf("invalid end of frame: got 0x%02X, expected 0x%02X", frame[len(frame)-1], EndOfFrame)
	}

	code = frame[1]
	dataLen := int(binary.LittleEndian.Uint16(frame[2:4]))
	if len(frame) != FrameOverhead+dataLen {
		return 0, nil, fmt.Errorf("frame length mismatch: got %d bytes, expected %d", len(frame), FrameOverhead+dataLen)
	}

	expected := binary.LittleEndian.Uint16(frame[len(frame)-3 : len(frame)-1])
	actual := frameChecksum(frame[1 : len(frame)-3])
	if expected != actual {
		return 0, nil, fmt.Errorf("checksum mismatch: got 0x%04X, expected 0x%04X", actual, expected)
	}

	return code, frame[4 : 4+dataLen], nil
}

// ReadFrame reads one bridge frame from r, skipping bytes before SOP.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == StartOfFrame {
			break
		}
	}

	head := make([]byte, 3)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	dataLen := int(binary.LittleEndian.Uint16(head[1:3]))

	frame := make([]byte, FrameOverhead+dataLen)
	frame[0] = StartOfFrame
	copy(frame[1:4], head)
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}
