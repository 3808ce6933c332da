package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"time"

	"go.bug.st/serial"
)

// fakeBridge emulates the bridge firmware on the far side of a serial port.
type fakeBridge struct {
	rx      bytes.Buffer
	written [][]byte
	regs    map[uint32]uint32
	status  byte
	silent  bool
	closed  bool
	timeout time.Duration
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{regs: make(map[uint32]uint32)}
}

func (b *fakeBridge) Write(p []byte) (int, error) {
	b.written = append(b.written, append([]byte(nil), p...))
	if b.silent {
		return len(p), nil
	}

	typ, data, err := DecodeFrame(p)
	if err != nil {
		b.reply(BridgeBadChecksum, nil)
		return len(p), nil
	}
	if b.status != BridgeOK {
		b.reply(b.status, nil)
		return len(p), nil
	}

	switch typ {
	case FrameCommand:
		b.reply(BridgeOK, append([]byte("confirm:"), data...))
	case FrameReadRegister:
		addr := binary.LittleEndian.Uint32(data)
		b.reply(BridgeOK, binary.LittleEndian.AppendUint32(nil, b.regs[addr]))
	case FrameWriteRegister:
		b.regs[binary.LittleEndian.Uint32(data)] = binary.LittleEndian.Uint32(data[4:])
		b.reply(BridgeOK, nil)
	case FrameReset:
		b.reply(BridgeOK, nil)
	default:
		b.reply(BridgeUnknownType, nil)
	}
	return len(p), nil
}

func (b *fakeBridge) reply(status byte, data []byte) {
	f, _ := EncodeFrame(status, data)
	b.rx.Write([]byte{0x00})
	b.rx.Write(f)
}

// Read mimics go.bug.st/serial: a timeout is a zero-byte read with no error.
func (b *fakeBridge) Read(p []byte) (int, error) {
	if b.rx.Len() == 0 {
		return 0, nil
	}
	return b.rx.Read(p)
}

func (b *fakeBridge) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBridge) SetReadTimeout(t time.Duration) error {
	b.timeout = t
	return nil
}

func (b *fakeBridge) ResetInputBuffer() error {
	b.rx.Reset()
	return nil
}

func openFakeSerial(t *testing.T, bridge *fakeBridge) *Serial {
	t.Helper()
	s := NewSerial("/dev/ttyFAKE", 921600, WithSerialTimeout(50*time.Millisecond))
	s.openFn = func(path string, mode *serial.Mode) (Port, error) {
		if mode.BaudRate != 921600 || mode.DataBits != 8 {
			t.Errorf("unexpected mode %+v", mode)
		}
		return bridge, nil
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func TestSerialSend(t *testing.T) {
	bridge := newFakeBridge()
	s := openFakeSerial(t, bridge)
	defer s.Close()

	req, _ := s.AllocRequest(2)
	resp, _ := s.AllocResponse(32)
	req.SetPayloadLength(2)

	if err := s.Send(context.Background(), req, resp); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if bridge.timeout != 50*time.Millisecond {
		t.Errorf("read timeout = %v, want 50ms", bridge.timeout)
	}
	if !bytes.HasPrefix(resp.Bytes(), []byte("confirm:")) {
		t.Errorf("response = %q", resp.Bytes())
	}
	if resp.Received() != len("confirm:")+14 {
		t.Errorf("Received() = %d, want %d", resp.Received(), len("confirm:")+14)
	}
	if bridge.written[0][1] != FrameCommand {
		t.Errorf("frame type = 0x%02X, want 0x%02X", bridge.written[0][1], FrameCommand)
	}
}

func TestSerialRegistersAndReset(t *testing.T) {
	bridge := newFakeBridge()
	s := openFakeSerial(t, bridge)
	ctx := context.Background()
	defer func() {
		s.Close()
		if !bridge.closed {
			t.Error("Close() did not close the port")
		}
	}()

	if !s.DirectChip() || !s.SupportsReset() {
		t.Error("serial transport should be direct-to-chip with reset")
	}
	if err := s.WriteRegister(ctx, RegMACBoot, RegMACBootValue); err != nil {
		t.Fatalf("WriteRegister() error = %v", err)
	}
	v, err := s.ReadRegister(ctx, RegMACBoot)
	if err != nil {
		t.Fatalf("ReadRegister() error = %v", err)
	}
	if v != RegMACBootValue {
		t.Errorf("ReadRegister() = 0x%08X, want 0x%08X", v, RegMACBootValue)
	}
	if err := Reset(ctx, s); err != nil {
		t.Errorf("Reset() error = %v", err)
	}
}

func TestSerialErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not open", func(t *testing.T) {
		s := NewSerial("/dev/ttyFAKE", 115200)
		if err := s.ResetDevice(ctx); !errors.Is(err, ErrNotOpen) {
			t.Errorf("ResetDevice() error = %v, want ErrNotOpen", err)
		}
	})

	t.Run("bridge status", func(t *testing.T) {
		bridge := newFakeBridge()
		bridge.status = BridgeChipTimeout
		s := openFakeSerial(t, bridge)

		err := s.ResetDevice(ctx)
		var be *BridgeError
		if !errors.As(err, &be) || be.Status != BridgeChipTimeout {
			t.Errorf("ResetDevice() error = %v, want BridgeError 0x04", err)
		}
	})

	t.Run("no reply", func(t *testing.T) {
		bridge := newFakeBridge()
		bridge.silent = true
		s := openFakeSerial(t, bridge)

		err := s.ResetDevice(ctx)
		if err == nil || !strings.Contains(err.Error(), "no reply") {
			t.Errorf("ResetDevice() error = %v, want timeout", err)
		}
	})

	t.Run("open failure", func(t *testing.T) {
		s := NewSerial("/dev/ttyMISSING", 115200)
		s.openFn = func(string, *serial.Mode) (Port, error) {
			return nil, errors.New("no such device")
		}
		err := s.Open(ctx)
		if err == nil || !strings.Contains(err.Error(), "/dev/ttyMISSING") {
			t.Errorf("Open() error = %v", err)
		}
	})
}

func TestSerialZeroTimeoutUsesDefault(t *testing.T) {
	bridge := newFakeBridge()
	s := NewSerial("/dev/ttyFAKE", 921600, WithSerialTimeout(0))
	s.openFn = func(string, *serial.Mode) (Port, error) {
		return bridge, nil
	}
	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	req, _ := s.AllocRequest(0)
	resp, _ := s.AllocResponse(32)
	if err := s.Send(ctx, req, resp); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if bridge.timeout != DefaultSerialTimeout {
		t.Errorf("read timeout = %v, want %v", bridge.timeout, DefaultSerialTimeout)
	}
}
