package transport

import (
	"fmt"
	"sync"

	"github.com/moffa90/go-morsectl/protocol"
)

// Buffer is a transport-owned frame: a fixed header region followed by a
// payload region of known capacity.
type Buffer struct {
	data       []byte
	headerSize int
	length     int
	received   int
	response   bool
	released   bool
}

func newBuffer(headerSize, payloadCap int, response bool) *Buffer {
	return &Buffer{
		data:       make([]byte, headerSize+payloadCap),
		headerSize: headerSize,
		response:   response,
	}
}

// Header returns the header region.
func (b *Buffer) Header() []byte {
	return b.data[:b.headerSize]
}

// Payload returns the full payload region, sized to capacity.
func (b *Buffer) Payload() []byte {
	return b.data[b.headerSize:]
}

// Capacity returns the payload capacity in bytes.
func (b *Buffer) Capacity() int {
	return len(b.data) - b.headerSize
}

// SetPayloadLength records how many payload bytes are in use.
func (b *Buffer) SetPayloadLength(n int) error {
	if n < 0 || n > b.Capacity() {
		return fmt.Errorf("%w: payload length %d exceeds capacity %d", protocol.ErrShortBuffer, n, b.Capacity())
	}
	b.length = n
	return nil
}

// PayloadLength returns the length set by SetPayloadLength.
func (b *Buffer) PayloadLength() int {
	return b.length
}

// Frame returns the header and the used part of the payload.
func (b *Buffer) Frame() []byte {
	return b.data[:b.headerSize+b.length]
}

// Fill copies a received frame into the buffer. Bytes beyond the
// capacity are dropped; Received reports the full count.
func (b *Buffer) Fill(frame []byte) {
	for i := range b.data {
		b.data[i] = 0
	}
	n := copy(b.data, frame)
	b.received = len(frame)
	b.length = n - b.headerSize
	if b.length < 0 {
		b.length = 0
	}
}

// Received returns the number of bytes the transport delivered.
func (b *Buffer) Received() int {
	return b.received
}

// Bytes returns the received frame, clipped to the buffer.
func (b *Buffer) Bytes() []byte {
	n := b.received
	if n > len(b.data) {
		n = len(b.data)
	}
	return b.data[:n]
}

// IsResponse reports whether the buffer was allocated for a confirm.
func (b *Buffer) IsResponse() bool {
	return b.response
}

// Pool hands out buffers and counts the ones not yet released.
// Transports embed it to share allocation and bookkeeping.
type Pool struct {
	mu          sync.Mutex
	outstanding int
}

// AllocRequest returns a zeroed request buffer.
func (p *Pool) AllocRequest(payloadCap int) (*Buffer, error) {
	return p.alloc(protocol.HeaderSize, payloadCap, false)
}

// AllocResponse returns a zeroed confirm buffer.
func (p *Pool) AllocResponse(payloadCap int) (*Buffer, error) {
	return p.alloc(protocol.ResponseHeaderSize, payloadCap, true)
}

func (p *Pool) alloc(headerSize, payloadCap int, response bool) (*Buffer, error) {
	if payloadCap < 0 || payloadCap > protocol.MaxPayloadSize {
		return nil, fmt.Errorf("transport: payload capacity %d outside [0, %d]", payloadCap, protocol.MaxPayloadSize)
	}
	p.mu.Lock()
	p.outstanding++
	p.mu.Unlock()
	return newBuffer(headerSize, payloadCap, response), nil
}

// Release returns b to the pool. Releasing nil or an already released
// buffer is a no-op.
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	p.outstanding--
}

// Outstanding returns how many buffers are allocated and not released.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

func checkBuffers(req, resp *Buffer) error {
	if req == nil || resp == nil {
		return fmt.Errorf("transport: nil buffer")
	}
	if req.released || resp.released {
		return ErrReleased
	}
	if req.response || !resp.response {
		return fmt.Errorf("transport: request and response buffers swapped")
	}
	return nil
}
