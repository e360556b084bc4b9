package osc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer is a fixed-capacity append cursor over a byte buffer. It writes OSC
// atomic types with their wire padding and alignment; numeric writes are
// big-endian regardless of host order. A write that would exceed the buffer
// capacity fails with ErrBufferFull and leaves the buffer untouched.
type Writer struct {
	buf []byte
	n   int
}

// NewWriter returns a Writer over a freshly allocated buffer of the given
// capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, capacity)}
}

// NewWriterBuffer returns a Writer borrowing the caller's buffer. The buffer
// is owned by the caller; its full length is the writer's capacity.
func NewWriterBuffer(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.n }

// Cap returns the total capacity of the underlying buffer.
func (w *Writer) Cap() int { return len(w.buf) }

// Bytes returns the written prefix of the buffer. The slice aliases the
// writer's backing array and is valid until the next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf[:w.n] }

// Reset rewinds the cursor to the start of the buffer.
func (w *Writer) Reset() { w.n = 0 }

// Truncate rewinds the cursor to offset n. It panics if n is negative or
// beyond the current length; that is a caller bug, not a wire condition.
func (w *Writer) Truncate(n int) {
	if n < 0 || n > w.n {
		panic(fmt.Sprintf("osc: Truncate(%d) outside written range [0,%d]", n, w.n))
	}
	w.n = n
}

// FromCurrent returns a sub-writer anchored at the current offset, sharing
// the same backing array. Writing through the sub-writer does not advance the
// parent; it is used to reserve a size field and backfill it after the
// element body is written.
func (w *Writer) FromCurrent() *Writer {
	return &Writer{buf: w.buf[w.n:]}
}

func (w *Writer) ensure(n int) error {
	if w.n+n > len(w.buf) {
		return fmt.Errorf("write of %d bytes at offset %d exceeds capacity %d: %w",
			n, w.n, len(w.buf), ErrBufferFull)
	}
	return nil
}

// WriteInt32 writes a big-endian 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	if err := w.ensure(bit32Size); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(w.buf[w.n:], uint32(v))
	w.n += bit32Size
	return nil
}

// WriteInt64 writes a big-endian 64-bit integer.
func (w *Writer) WriteInt64(v int64) error {
	if err := w.ensure(bit64Size); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(w.buf[w.n:], uint64(v))
	w.n += bit64Size
	return nil
}

// WriteFloat32 writes a big-endian IEEE 754 single.
func (w *Writer) WriteFloat32(v float32) error {
	if err := w.ensure(bit32Size); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(w.buf[w.n:], math.Float32bits(v))
	w.n += bit32Size
	return nil
}

// WriteFloat64 writes a big-endian IEEE 754 double.
func (w *Writer) WriteFloat64(v float64) error {
	if err := w.ensure(bit64Size); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(w.buf[w.n:], math.Float64bits(v))
	w.n += bit64Size
	return nil
}

// WriteChar writes an ASCII character as a 32-bit value.
func (w *Writer) WriteChar(c byte) error {
	return w.WriteInt32(int32(c))
}

// WriteTimetag writes an 8-byte time tag.
func (w *Writer) WriteTimetag(t Timetag) error {
	return w.WriteInt64(int64(t))
}

// WriteColor writes a 32-bit RGBA color.
func (w *Writer) WriteColor(c Color) error {
	if err := w.ensure(bit32Size); err != nil {
		return err
	}
	w.buf[w.n] = c.R
	w.buf[w.n+1] = c.G
	w.buf[w.n+2] = c.B
	w.buf[w.n+3] = c.A
	w.n += bit32Size
	return nil
}

// WriteMIDI writes a 4-byte MIDI message.
func (w *Writer) WriteMIDI(m MIDIMessage) error {
	if err := w.ensure(bit32Size); err != nil {
		return err
	}
	w.buf[w.n] = m.Port
	w.buf[w.n+1] = m.Status
	w.buf[w.n+2] = m.Data1
	w.buf[w.n+3] = m.Data2
	w.n += bit32Size
	return nil
}

// WriteString writes an OSC-string: the ASCII bytes of s followed by 1-4
// null bytes so the total is a multiple of four.
func (w *Writer) WriteString(s string) error {
	if err := w.ensure(paddedStringSize(s)); err != nil {
		return err
	}
	w.n += writePaddedString(s, w.buf[w.n:])
	return nil
}

// WriteBlob writes an OSC blob: big-endian length prefix, the payload bytes,
// and zero padding to the next multiple of four.
func (w *Writer) WriteBlob(p []byte) error {
	if err := w.ensure(bit32Size + alignedSize(len(p))); err != nil {
		return err
	}
	w.n += writeBlob(p, w.buf[w.n:])
	return nil
}

// WriteBundlePrefix writes the fixed 8-byte "#bundle\0" literal.
func (w *Writer) WriteBundlePrefix() error {
	if err := w.ensure(len(bundlePrefix)); err != nil {
		return err
	}
	w.n += copy(w.buf[w.n:], bundlePrefix)
	return nil
}
