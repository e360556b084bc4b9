package osc

import (
	"encoding/binary"
	"fmt"
)

// Length-prefix stream framing: each packet is preceded by a big-endian
// 4-byte length. Both ends of a connection must agree on the framing; SLIP
// and length-prefix streams are not interchangeable mid-stream.

// LengthPrefixEncoder frames packets with a 4-byte big-endian length header.
// Its internal buffer grows geometrically and is reused across calls.
type LengthPrefixEncoder struct {
	buf []byte
}

// Encode returns the framed form of p. The returned slice is valid until the
// next Encode call.
func (e *LengthPrefixEncoder) Encode(p []byte) []byte {
	need := bit32Size + len(p)
	if cap(e.buf) < need {
		newCap := cap(e.buf)
		if newCap == 0 {
			newCap = 256
		}
		for newCap < need {
			newCap *= 2
		}
		e.buf = make([]byte, 0, newCap)
	}

	out := e.buf[:need]
	binary.BigEndian.PutUint32(out, uint32(len(p)))
	copy(out[bit32Size:], p)

	e.buf = out
	return out
}

// LengthPrefixDecoder reconstructs packets from a continuous byte stream. A
// declared length exceeding the configured maximum is a fatal framing error
// for the stream: byte alignment with the peer cannot be trusted afterwards,
// so the decoder latches the error and the connection should be dropped.
type LengthPrefixDecoder struct {
	maxFrame int
	buf      []byte
	off      int // consumed prefix of buf
	need     int // payload bytes expected, -1 while reading the header
	fatal    error
}

// NewLengthPrefixDecoder returns a decoder enforcing the given maximum frame
// size. maxFrame <= 0 selects MaxPacketSize.
func NewLengthPrefixDecoder(maxFrame int) *LengthPrefixDecoder {
	if maxFrame <= 0 {
		maxFrame = MaxPacketSize
	}
	return &LengthPrefixDecoder{maxFrame: maxFrame, need: -1}
}

// Decode feeds a chunk of stream bytes into the decoder. emit is called once
// per complete packet with a view of the decoder's internal buffer, valid
// only for the duration of the call. A non-nil error from emit stops the
// feed and is returned; decoding resumes with the next call. After a fatal
// framing error every call returns that error.
func (d *LengthPrefixDecoder) Decode(chunk []byte, emit func(packet []byte) error) error {
	if d.fatal != nil {
		return d.fatal
	}

	// append grows the accumulation buffer geometrically and never drops
	// accumulated bytes.
	d.buf = append(d.buf, chunk...)

	for {
		if d.need == -1 {
			if len(d.buf)-d.off < bit32Size {
				d.compact()
				return nil
			}
			declared := int(int32(binary.BigEndian.Uint32(d.buf[d.off:])))
			if declared < 0 || declared > d.maxFrame {
				d.fatal = fmt.Errorf("declared frame length %d exceeds maximum %d: %w",
					declared, d.maxFrame, ErrFrameTooLarge)
				return d.fatal
			}
			d.off += bit32Size
			d.need = declared
		}

		if len(d.buf)-d.off < d.need {
			d.compact()
			return nil
		}

		packet := d.buf[d.off : d.off+d.need]
		d.off += d.need
		d.need = -1
		if err := emit(packet); err != nil {
			d.compact()
			return err
		}
	}
}

// Err returns the latched fatal framing error, if any.
func (d *LengthPrefixDecoder) Err() error {
	return d.fatal
}

// compact drops the consumed prefix so the buffer does not grow without
// bound across packets.
func (d *LengthPrefixDecoder) compact() {
	if d.off == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}
