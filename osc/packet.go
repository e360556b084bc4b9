package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// MaxNestingDepth bounds bundle recursion (and the client build stack). The
// wire format itself has no limit; this guards worst-case stack usage against
// pathological nesting.
const MaxNestingDepth = 64

// Element is one node of a parsed packet tree: a *Message or a *Bundle.
type Element interface {
	element()
}

// Packet owns a mutable byte buffer and, after Parse, a tree of element
// views into that buffer. The views hold no copies: they are valid only until
// the next Parse call or buffer mutation and must not be retained past the
// callback scope that received them. A generation counter turns late reads
// into ErrStaleView instead of silent corruption.
type Packet struct {
	buf []byte
	gen uint32
}

// NewPacket returns a Packet with a freshly allocated buffer of the given
// capacity.
func NewPacket(capacity int) *Packet {
	return &Packet{buf: make([]byte, capacity)}
}

// NewPacketBuffer returns a Packet borrowing the caller's buffer, the
// zero-copy path for buffers handed over by a transport.
func NewPacketBuffer(buf []byte) *Packet {
	return &Packet{buf: buf}
}

// Buffer exposes the full backing buffer so a transport can read into it
// before calling Parse. Mutating it invalidates any outstanding views.
func (p *Packet) Buffer() []byte { return p.buf }

// Parse validates and indexes the first n buffer bytes in place. The root is
// a *Message if the buffer starts with '/', a *Bundle if it starts with the
// 8-byte "#bundle\0" literal. Any previously returned views are invalidated.
func (p *Packet) Parse(n int) (Element, error) {
	if n < 0 || n > len(p.buf) {
		return nil, fmt.Errorf("Parse: length %d outside buffer of %d bytes", n, len(p.buf))
	}
	p.gen++

	data := p.buf[:n]
	switch {
	case n == 0:
		return nil, fmt.Errorf("Parse: %w", ErrNotAPacket)
	case data[0] == '/':
		return p.parseMessage(data)
	case n >= len(bundlePrefix) && bytes.Equal(data[:len(bundlePrefix)], bundlePrefix):
		return p.parseBundle(data, 1)
	default:
		return nil, fmt.Errorf("Parse: %w", ErrNotAPacket)
	}
}

// ParsePacket parses a raw buffer into an element tree, borrowing the buffer.
// The views are tied to the buffer the same way as with an explicit Packet.
func ParsePacket(data []byte) (Element, error) {
	return NewPacketBuffer(data).Parse(len(data))
}

////
// Message view
////

// Message is a view over a parsed packet: address pattern bytes, tag string
// and per-index argument readers. It owns no memory and is not safe for use
// after the owning Packet is re-parsed.
type Message struct {
	pkt  *Packet
	gen  uint32
	addr []byte
	tags []byte   // tag bytes after the leading ','
	args [][]byte // payload view per argument index
}

func (m *Message) element() {}

func (m *Message) live() error {
	if m.gen != m.pkt.gen {
		return ErrStaleView
	}
	return nil
}

// Address returns the message's address pattern field as a string copy.
func (m *Message) Address() (string, error) {
	if err := m.live(); err != nil {
		return "", err
	}
	return string(m.addr), nil
}

// AddressBytes returns the address pattern bytes without copying. The slice
// is valid only as long as the view itself.
func (m *Message) AddressBytes() ([]byte, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	return m.addr, nil
}

// TypeTags returns the tag string including the leading ','.
func (m *Message) TypeTags() (string, error) {
	if err := m.live(); err != nil {
		return "", err
	}
	return "," + string(m.tags), nil
}

// CountArguments returns the number of arguments.
func (m *Message) CountArguments() int {
	return len(m.args)
}

// TagAt returns the type tag at index i, or TypeInvalid out of range.
func (m *Message) TagAt(i int) TypeTag {
	if i < 0 || i >= len(m.tags) {
		return TypeInvalid
	}
	return TypeTag(m.tags[i])
}

func (m *Message) payloadAt(i int, want ...TypeTag) ([]byte, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(m.args) {
		return nil, fmt.Errorf("argument %d of %d: %w", i, len(m.args), ErrIndexRange)
	}
	got := TypeTag(m.tags[i])
	for _, t := range want {
		if got == t {
			return m.args[i], nil
		}
	}
	return nil, fmt.Errorf("argument %d is '%c', not '%c': %w", i, got, want[0], ErrTypeMismatch)
}

// Int32At reads the 'i' argument at index i.
func (m *Message) Int32At(i int) (int32, error) {
	b, err := m.payloadAt(i, TypeInt32)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Int64At reads the 'h' argument at index i.
func (m *Message) Int64At(i int) (int64, error) {
	b, err := m.payloadAt(i, TypeInt64)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// Float32At reads the 'f' argument at index i.
func (m *Message) Float32At(i int) (float32, error) {
	b, err := m.payloadAt(i, TypeFloat32)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// Float64At reads the 'd' argument at index i.
func (m *Message) Float64At(i int) (float64, error) {
	b, err := m.payloadAt(i, TypeFloat64)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// StringAt reads the 's' or 'S' argument at index i as a copy.
func (m *Message) StringAt(i int) (string, error) {
	b, err := m.payloadAt(i, TypeString, TypeAltString)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// BlobAt reads the 'b' argument at index i. The returned slice is a view
// into the packet buffer, valid only as long as the view itself.
func (m *Message) BlobAt(i int) ([]byte, error) {
	return m.payloadAt(i, TypeBlob)
}

// TimetagAt reads the 't' argument at index i.
func (m *Message) TimetagAt(i int) (Timetag, error) {
	b, err := m.payloadAt(i, TypeTimeTag)
	if err != nil {
		return 0, err
	}
	return Timetag(binary.BigEndian.Uint64(b)), nil
}

// CharAt reads the 'c' argument at index i.
func (m *Message) CharAt(i int) (byte, error) {
	b, err := m.payloadAt(i, TypeChar)
	if err != nil {
		return 0, err
	}
	return byte(binary.BigEndian.Uint32(b)), nil
}

// ColorAt reads the 'r' argument at index i.
func (m *Message) ColorAt(i int) (Color, error) {
	b, err := m.payloadAt(i, TypeColor)
	if err != nil {
		return Color{}, err
	}
	return Color{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

// MIDIAt reads the 'm' argument at index i.
func (m *Message) MIDIAt(i int) (MIDIMessage, error) {
	b, err := m.payloadAt(i, TypeMIDI)
	if err != nil {
		return MIDIMessage{}, err
	}
	return MIDIMessage{Port: b[0], Status: b[1], Data1: b[2], Data2: b[3]}, nil
}

// BoolAt reads the 'T' or 'F' argument at index i.
func (m *Message) BoolAt(i int) (bool, error) {
	if _, err := m.payloadAt(i, TypeTrue, TypeFalse); err != nil {
		return false, err
	}
	return TypeTag(m.tags[i]) == TypeTrue, nil
}

// ArgumentAt reads the argument at index i as a Go value, whatever its tag.
// Strings and blobs are copied; array markers and impulse yield their marker
// types.
func (m *Message) ArgumentAt(i int) (interface{}, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(m.args) {
		return nil, fmt.Errorf("argument %d of %d: %w", i, len(m.args), ErrIndexRange)
	}

	b := m.args[i]
	switch TypeTag(m.tags[i]) {
	case TypeInt32:
		return int32(binary.BigEndian.Uint32(b)), nil
	case TypeFloat32:
		return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
	case TypeString, TypeAltString:
		return string(b), nil
	case TypeBlob:
		return append([]byte(nil), b...), nil
	case TypeInt64:
		return int64(binary.BigEndian.Uint64(b)), nil
	case TypeFloat64:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case TypeTimeTag:
		return Timetag(binary.BigEndian.Uint64(b)), nil
	case TypeChar:
		return byte(binary.BigEndian.Uint32(b)), nil
	case TypeColor:
		return Color{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
	case TypeMIDI:
		return MIDIMessage{Port: b[0], Status: b[1], Data1: b[2], Data2: b[3]}, nil
	case TypeTrue:
		return true, nil
	case TypeFalse:
		return false, nil
	case TypeNil:
		return nil, nil
	case TypeImpulse:
		return Impulse{}, nil
	case TypeArrayStart, TypeArrayEnd:
		return TypeTag(m.tags[i]), nil
	default:
		return nil, fmt.Errorf("argument %d has unsupported tag '%c'", i, m.tags[i])
	}
}

// String implements fmt.Stringer; a stale view renders as an empty string.
func (m *Message) String() string {
	if m.live() != nil {
		return ""
	}

	var sb bytes.Buffer
	sb.Write(m.addr)
	if len(m.args) == 0 {
		return sb.String()
	}

	sb.WriteString(" ,")
	sb.Write(m.tags)
	for i := range m.args {
		v, err := m.ArgumentAt(i)
		if err != nil {
			break
		}
		switch v := v.(type) {
		case nil:
			sb.WriteString(" Nil")
		case []byte:
			sb.WriteString(" blob[" + strconv.Itoa(len(v)) + "]")
		default:
			fmt.Fprintf(&sb, " %v", v)
		}
	}
	return sb.String()
}

// parseMessage indexes one message in place: address, tag string, then the
// byte offset of every argument, validated against the remaining length.
func (p *Packet) parseMessage(data []byte) (*Message, error) {
	addr, n, err := parsePaddedString(data)
	if err != nil {
		return nil, fmt.Errorf("parseMessage: %w", err)
	}
	if Classify(string(addr)) == KindInvalid {
		return nil, fmt.Errorf("parseMessage: %q: %w", addr, ErrInvalidAddress)
	}
	data = data[n:]

	m := &Message{pkt: p, gen: p.gen, addr: addr}
	if len(data) == 0 {
		// No tag string: tolerated as a zero-argument message.
		return m, nil
	}

	tags, n, err := parsePaddedString(data)
	if err != nil {
		return nil, fmt.Errorf("parseMessage: tag string: %w", err)
	}
	if len(tags) == 0 || tags[0] != ',' {
		return nil, fmt.Errorf("parseMessage: tag string %q does not start with ','", tags)
	}
	data = data[n:]

	m.tags = tags[1:]
	m.args = make([][]byte, 0, len(m.tags))

	for i, c := range m.tags {
		size := TypeTag(c).payloadSize()
		switch size {
		case sizeInvalid:
			return nil, fmt.Errorf("parseMessage: unsupported type tag '%c' at %d", c, i)
		case sizeVariable:
			var view []byte
			var n int
			if TypeTag(c) == TypeBlob {
				view, n, err = parseBlob(data)
			} else {
				view, n, err = parsePaddedString(data)
			}
			if err != nil {
				return nil, fmt.Errorf("parseMessage: argument %d: %w", i, err)
			}
			m.args = append(m.args, view)
			data = data[n:]
		default:
			if size > len(data) {
				return nil, fmt.Errorf("parseMessage: argument %d ('%c'): %w", i, c, ErrTruncated)
			}
			m.args = append(m.args, data[:size])
			data = data[size:]
		}
	}

	return m, nil
}

////
// Bundle view
////

// Bundle is a view over a parsed packet: a time tag, the immediate child
// messages in declared order, and the immediate child bundles (recursive).
type Bundle struct {
	pkt *Packet
	gen uint32
	tt  Timetag

	Messages []*Message
	Bundles  []*Bundle
}

func (b *Bundle) element() {}

// Timetag returns the bundle's time tag.
func (b *Bundle) Timetag() (Timetag, error) {
	if b.gen != b.pkt.gen {
		return 0, ErrStaleView
	}
	return b.tt, nil
}

// parseBundle indexes one bundle in place. Element parse failures are
// localized: an unparseable element is skipped; parsing stops early only when
// a size field is unreadable or overruns the remaining buffer, since the
// framing cannot be trusted past that point.
func (p *Packet) parseBundle(data []byte, depth int) (*Bundle, error) {
	if depth > MaxNestingDepth {
		return nil, fmt.Errorf("parseBundle: depth %d: %w", depth, ErrNestingTooDeep)
	}
	if len(data) < len(bundlePrefix)+bit64Size {
		return nil, fmt.Errorf("parseBundle: %w", ErrTruncated)
	}
	if !bytes.Equal(data[:len(bundlePrefix)], bundlePrefix) {
		return nil, fmt.Errorf("parseBundle: missing #bundle prefix: %w", ErrNotAPacket)
	}
	data = data[len(bundlePrefix):]

	b := &Bundle{pkt: p, gen: p.gen, tt: Timetag(binary.BigEndian.Uint64(data[:bit64Size]))}
	data = data[bit64Size:]

	for len(data) >= bit32Size {
		size := int(int32(binary.BigEndian.Uint32(data[:bit32Size])))
		if size < 0 || bit32Size+size > len(data) {
			break
		}
		elem := data[bit32Size : bit32Size+size]
		data = data[bit32Size+size:]

		switch {
		case size == 0:
			continue
		case elem[0] == '/':
			m, err := p.parseMessage(elem)
			if err != nil {
				continue
			}
			b.Messages = append(b.Messages, m)
		case size >= len(bundlePrefix) && bytes.Equal(elem[:len(bundlePrefix)], bundlePrefix):
			nested, err := p.parseBundle(elem, depth+1)
			if err != nil {
				continue
			}
			b.Bundles = append(b.Bundles, nested)
		}
	}

	return b, nil
}
