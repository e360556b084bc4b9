package osc

// SLIP framing per RFC 1055: packets are delimited by END bytes; END and ESC
// bytes inside the payload are escaped as ESC+ESC_END and ESC+ESC_ESC.
const (
	slipEnd    = 0xC0
	slipEsc    = 0xDB
	slipEscEnd = 0xDC
	slipEscEsc = 0xDD
)

// SLIPEncoder frames packets for transmission over a continuous byte stream.
// Its internal buffer grows geometrically and is reused across calls.
type SLIPEncoder struct {
	buf []byte
}

// Encode returns the SLIP frame for p: a leading END byte (to flush any line
// noise on the receiver), the escaped payload, and a trailing END byte. The
// returned slice is valid until the next Encode call.
func (e *SLIPEncoder) Encode(p []byte) []byte {
	// Worst case: every payload byte escaped, plus the two END delimiters.
	need := 2*len(p) + 2
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

	out := e.buf[:0]
	out = append(out, slipEnd)
	for _, b := range p {
		switch b {
		case slipEnd:
			out = append(out, slipEsc, slipEscEnd)
		case slipEsc:
			out = append(out, slipEsc, slipEscEsc)
		default:
			out = append(out, b)
		}
	}
	out = append(out, slipEnd)

	e.buf = out
	return out
}

// SLIPDecoder reconstructs packets from a continuous byte stream. It keeps
// an "escape pending" flag across chunk boundaries, so the stream may be fed
// in arbitrary pieces. An END byte with no accumulated payload only resets
// the decode state, tolerating leading noise and back-to-back END framing
// used for resynchronization; nothing is emitted for it.
type SLIPDecoder struct {
	buf     []byte
	escaped bool
}

// Decode feeds a chunk of stream bytes into the decoder. emit is called once
// per complete packet with a view of the decoder's internal buffer, valid
// only for the duration of the call. A non-nil error from emit stops the
// feed and is returned; the unconsumed remainder of the chunk is dropped.
//
// SLIP can resynchronize on the next END byte, so decode never fails on
// malformed input: an ESC followed by an unexpected byte passes that byte
// through unescaped.
func (d *SLIPDecoder) Decode(chunk []byte, emit func(packet []byte) error) error {
	for _, b := range chunk {
		if d.escaped {
			d.escaped = false
			switch b {
			case slipEscEnd:
				d.push(slipEnd)
			case slipEscEsc:
				d.push(slipEsc)
			default:
				d.push(b)
			}
			continue
		}

		switch b {
		case slipEsc:
			d.escaped = true
		case slipEnd:
			if len(d.buf) == 0 {
				continue
			}
			packet := d.buf
			d.buf = d.buf[:0]
			d.escaped = false
			if err := emit(packet); err != nil {
				return err
			}
		default:
			d.push(b)
		}
	}
	return nil
}

// Reset discards any partially accumulated packet.
func (d *SLIPDecoder) Reset() {
	d.buf = d.buf[:0]
	d.escaped = false
}

func (d *SLIPDecoder) push(b byte) {
	if len(d.buf) == cap(d.buf) {
		newCap := cap(d.buf) * 2
		if newCap == 0 {
			newCap = 256
		}
		grown := make([]byte, len(d.buf), newCap)
		copy(grown, d.buf)
		d.buf = grown
	}
	d.buf = append(d.buf, b)
}
