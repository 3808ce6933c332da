package protocol

import (
	"encoding/binary"
	"fmt"
)

// Writer serializes packed little-endian fields into a fixed byte slice.
//
// The first failed write is remembered; later writes are ignored so callers
// can write a whole struct and check Err once.
type Writer struct {
	buf []byte
	off int
	err error
}

// NewWriter returns a Writer positioned at the start of buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}
	if len(w.buf)-w.off < n {
		w.err = fmt.Errorf("%w: need %d bytes at offset %d, capacity %d", ErrShortBuffer, n, w.off, len(w.buf))
		return nil
	}
	b := w.buf[w.off : w.off+n]
	w.off += n
	return b
}

// U8 writes a single byte.
func (w *Writer) U8(v uint8) {
	if b := w.reserve(1); b != nil {
		b[0] = v
	}
}

// I8 writes a signed byte.
func (w *Writer) I8(v int8) {
	w.U8(uint8(v))
}

// Bool writes 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	if b := w.reserve(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	if b := w.reserve(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// Bytes writes p verbatim.
func (w *Writer) Bytes(p []byte) {
	if b := w.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.off
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	return w.err
}

// Reader extracts packed little-endian fields from a byte slice.
//
// Reads past the end return zero values and record ErrTruncated.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads a single byte.
func (r *Reader) U8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

// I8 reads a signed byte.
func (r *Reader) I8() int8 {
	return int8(r.U8())
}

// Bool reads a byte and reports whether it is non-zero.
func (r *Reader) Bool() bool {
	return r.U8() != 0
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// Bytes reads n bytes. The returned slice is a copy.
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Peek returns the next byte without consuming it.
func (r *Reader) Peek() (uint8, bool) {
	if r.err != nil || r.off >= len(r.buf) {
		return 0, false
	}
	return r.buf[r.off], true
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int {
	return r.off
}

// Err returns the first read error, if any.
func (r *Reader) Err() error {
	return r.err
}
