package osc

// TypeTag is a single ASCII character denoting the wire encoding of one
// message argument.
type TypeTag byte

// The standard OSC 1.0 tags plus the documented extensions.
const (
	TypeInt32      TypeTag = 'i'
	TypeFloat32    TypeTag = 'f'
	TypeString     TypeTag = 's'
	TypeBlob       TypeTag = 'b'
	TypeInt64      TypeTag = 'h'
	TypeFloat64    TypeTag = 'd'
	TypeTimeTag    TypeTag = 't'
	TypeChar       TypeTag = 'c'
	TypeColor      TypeTag = 'r'
	TypeMIDI       TypeTag = 'm'
	TypeTrue       TypeTag = 'T'
	TypeFalse      TypeTag = 'F'
	TypeNil        TypeTag = 'N'
	TypeImpulse    TypeTag = 'I'
	TypeAltString  TypeTag = 'S'
	TypeArrayStart TypeTag = '['
	TypeArrayEnd   TypeTag = ']'
	TypeInvalid    TypeTag = 0
)

// payload size markers for tags whose size is not a fixed byte count.
const (
	sizeVariable = -1 // null-terminated, padded payload (s, S, b)
	sizeInvalid  = -2
)

// payloadSize returns the fixed payload size in bytes for the tag, 0 for
// tags that carry no payload, sizeVariable for string/blob tags, and
// sizeInvalid for unknown tags.
func (t TypeTag) payloadSize() int {
	switch t {
	case TypeInt32, TypeFloat32, TypeChar, TypeColor, TypeMIDI:
		return bit32Size
	case TypeInt64, TypeFloat64, TypeTimeTag:
		return bit64Size
	case TypeString, TypeAltString, TypeBlob:
		return sizeVariable
	case TypeTrue, TypeFalse, TypeNil, TypeImpulse, TypeArrayStart, TypeArrayEnd:
		return 0
	default:
		return sizeInvalid
	}
}

// Valid reports whether the tag is one of the supported type tags.
func (t TypeTag) Valid() bool {
	return t.payloadSize() != sizeInvalid
}

func (t TypeTag) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return string(byte(t))
}

// MIDIMessage is the 4-byte payload of an 'm' argument: port id, status byte
// and two data bytes, in wire order.
type MIDIMessage struct {
	Port   byte
	Status byte
	Data1  byte
	Data2  byte
}

// Color is the 4-byte payload of an 'r' argument: 32-bit RGBA, one byte per
// channel in wire order.
type Color struct {
	R, G, B, A byte
}

// Impulse is the value carried by an 'I' argument. It has no payload bytes.
type Impulse struct{}

// ToTypeTag returns the TypeTag for the given Go value. Returns TypeInvalid
// if the value's type is unsupported.
func ToTypeTag(arg interface{}) TypeTag {
	switch t := arg.(type) {
	case bool:
		if t {
			return TypeTrue
		}
		return TypeFalse
	case nil:
		return TypeNil
	case int32:
		return TypeInt32
	case float32:
		return TypeFloat32
	case string:
		return TypeString
	case []byte:
		return TypeBlob
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case Timetag:
		return TypeTimeTag
	case MIDIMessage:
		return TypeMIDI
	case Color:
		return TypeColor
	case Impulse:
		return TypeImpulse
	default:
		return TypeInvalid
	}
}
