package osc

import (
	"encoding/binary"
	"time"
)

const secondsFrom1900To1970 = 2208988800

// TimetagImmediate is the special "now" value: 63 zero bits followed by a one
// in the least significant bit (seconds=0, fraction=1). It is reserved and
// never produced by converting a real timestamp.
const TimetagImmediate = Timetag(1)

// Timetag represents an OSC Time Tag.
// Time tags are represented by a 64 bit fixed point number. The first 32 bits
// specify the number of seconds since midnight on January 1, 1900, and the
// last 32 bits specify fractional parts of a second to a precision of about
// 200 picoseconds. This is the representation used by Internet NTP timestamps.
type Timetag uint64

// NewTimetag returns a time tag for the current time.
func NewTimetag() Timetag {
	return NewTimetagFromTime(time.Now())
}

// NewImmediateTimetag returns the reserved "immediately" time tag.
func NewImmediateTimetag() Timetag {
	return TimetagImmediate
}

// NewTimetagFromTime converts a time.Time to an OSC time tag.
func NewTimetagFromTime(t time.Time) Timetag {
	secs := uint64(t.Unix() + secondsFrom1900To1970)
	frac := (uint64(t.Nanosecond()) << 32) / uint64(time.Second)
	return Timetag(secs<<32 | frac)
}

// Time converts the time tag back to a time.Time. The result is undefined for
// the immediate sentinel.
func (t Timetag) Time() time.Time {
	secs := int64(t>>32) - secondsFrom1900To1970
	nanos := (int64(uint32(t)) * int64(time.Second)) >> 32
	return time.Unix(secs, nanos)
}

// SecondsSinceEpoch returns the first 32 bits: the number of whole seconds
// since midnight January 1, 1900.
func (t Timetag) SecondsSinceEpoch() uint32 {
	return uint32(t >> 32)
}

// FractionalSecond returns the last 32 bits: the fractional part of a second.
func (t Timetag) FractionalSecond() uint32 {
	return uint32(t)
}

// IsImmediate reports whether the tag is the reserved "immediately" value.
func (t Timetag) IsImmediate() bool {
	return t == TimetagImmediate
}

// Before reports whether t denotes an earlier instant than other. The
// immediate sentinel sorts before every real timestamp.
func (t Timetag) Before(other Timetag) bool {
	return t < other
}

// SetTime sets the value of the time tag.
func (t *Timetag) SetTime(tm time.Time) {
	*t = NewTimetagFromTime(tm)
}

// MarshalBinary converts the time tag to its 8-byte big-endian wire form.
func (t Timetag) MarshalBinary() ([]byte, error) {
	b := make([]byte, bit64Size)
	binary.BigEndian.PutUint64(b, uint64(t))
	return b, nil
}

// ExpiresIn calculates the duration until the tagged instant. It returns zero
// for the immediate sentinel and for instants in the past.
func (t Timetag) ExpiresIn() time.Duration {
	if t <= TimetagImmediate {
		return 0
	}

	d := t.Time().Sub(time.Now())
	if d <= 0 {
		return 0
	}
	return d
}
