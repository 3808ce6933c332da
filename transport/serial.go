package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultSerialTimeout bounds a single bridge exchange.
const DefaultSerialTimeout = 2 * time.Second

// Port is the subset of serial.Port the transport uses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Serial talks to the chip through a UART/SPI bridge without the driver.
// Every exchange is one bridge frame out and one bridge frame back.
type Serial struct {
	Pool

	path    string
	mode    *serial.Mode
	timeout time.Duration
	openFn  func(path string, mode *serial.Mode) (Port, error)

	mu     sync.Mutex
	port   Port
	reader *bufio.Reader
}

// SerialOption configures a Serial transport.
type SerialOption func(*Serial)

// WithSerialTimeout sets the per-exchange read timeout. A non-positive d
// keeps DefaultSerialTimeout.
func WithSerialTimeout(d time.Duration) SerialOption {
	return func(s *Serial) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSerial returns a closed serial transport for the port at path.
func NewSerial(path string, baud int, opts ...SerialOption) *Serial {
	s := &Serial{
		path: path,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		timeout: DefaultSerialTimeout,
		openFn: func(path string, mode *serial.Mode) (Port, error) {
			return serial.Open(path, mode)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Serial) Kind() Kind { return KindSerial }

func (s *Serial) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}

	port, err := s.openFn(s.path, s.mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if err := port.SetReadTimeout(s.timeout); err != nil {
		port.Close()
		return fmt.Errorf("set timeout on %s: %w", s.path, err)
	}
	_ = port.ResetInputBuffer()

	s.port = port
	s.reader = bufio.NewReader(timeoutReader{port})
	return nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.reader = nil
	return err
}

func (s *Serial) Send(ctx context.Context, req, resp *Buffer) error {
	if err := checkBuffers(req, resp); err != nil {
		return err
	}
	reply, err := s.exchange(ctx, FrameCommand, req.Frame())
	if err != nil {
		return err
	}
	resp.Fill(reply)
	return nil
}

func (s *Serial) SupportsReset() bool { return true }
func (s *Serial) DirectChip() bool    { return true }

// ResetDevice asks the bridge to pulse the chip reset line.
func (s *Serial) ResetDevice(ctx context.Context) error {
	_, err := s.exchange(ctx, FrameReset, nil)
	return err
}

func (s *Serial) ReadRegister(ctx context.Context, addr uint32) (uint32, error) {
	data := binary.LittleEndian.AppendUint32(nil, addr)
	reply, err := s.exchange(ctx, FrameReadRegister, data)
	if err != nil {
		return 0, err
	}
	if len(reply) != 4 {
		return 0, fmt.Errorf("register read of 0x%08X returned %d bytes, expected 4", addr, len(reply))
	}
	return binary.LittleEndian.Uint32(reply), nil
}

func (s *Serial) WriteRegister(ctx context.Context, addr, value uint32) error {
	data := binary.LittleEndian.AppendUint32(nil, addr)
	data = binary.LittleEndian.AppendUint32(data, value)
	_, err := s.exchange(ctx, FrameWriteRegister, data)
	return err
}

func (s *Serial) exchange(ctx context.Context, typ byte, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, ErrNotOpen
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return nil, fmt.Errorf("set timeout: %w", err)
	}

	frame, err := EncodeFrame(typ, data)
	if err != nil {
		return nil, err
	}
	if _, err := s.port.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	raw, err := ReadFrame(s.reader)
	if err != nil {
		if errors.Is(err, errReadTimeout) {
			s.reader.Reset(timeoutReader{s.port})
			return nil, fmt.Errorf("read frame: no reply within %s: %w", timeout, err)
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}

	status, reply, err := DecodeFrame(raw)
	if err != nil {
		return nil, err
	}
	if status != BridgeOK {
		return nil, &BridgeError{Status: status}
	}
	return reply, nil
}

var errReadTimeout = errors.New("serial read timeout")

// timeoutReader turns the zero-byte read go.bug.st/serial returns on
// timeout into an error so io.ReadFull does not spin.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, errReadTimeout
	}
	return n, err
}
