package osc

import "errors"

// Standard error variables for the protocol core. Callers can test for these
// with errors.Is; most functions wrap them with additional context.
var (
	// ErrBufferFull is returned when a write would exceed the fixed
	// capacity of a Writer. The write is rejected whole, nothing is
	// truncated.
	ErrBufferFull = errors.New("osc: buffer capacity exceeded")

	// ErrInvalidAddress is returned when a string fails address/pattern
	// classification.
	ErrInvalidAddress = errors.New("osc: invalid address")

	// ErrTypeMismatch is returned by a typed argument accessor when the
	// type tag at that index denotes a different type.
	ErrTypeMismatch = errors.New("osc: argument type does not match type tag")

	// ErrIndexRange is returned by argument accessors for an index outside
	// [0, CountArguments).
	ErrIndexRange = errors.New("osc: argument index out of range")

	// ErrTruncated is returned when a buffer ends before the structure it
	// declares.
	ErrTruncated = errors.New("osc: truncated packet")

	// ErrNotAPacket is returned when a buffer starts with neither '/' nor
	// the "#bundle" literal.
	ErrNotAPacket = errors.New("osc: buffer is neither a message nor a bundle")

	// ErrStaleView is returned when a Message or Bundle view is read after
	// its owning Packet has been re-parsed.
	ErrStaleView = errors.New("osc: view invalidated by a later Parse")

	// ErrDisposed is returned by any operation on a disposed Client,
	// Server or AddressSpace.
	ErrDisposed = errors.New("osc: use of disposed object")

	// ErrNoOpenFrame is returned by EndMessage/EndBundle when no matching
	// Begin call is open.
	ErrNoOpenFrame = errors.New("osc: no open message or bundle")

	// ErrNestingTooDeep is returned when message/bundle nesting exceeds
	// MaxNestingDepth.
	ErrNestingTooDeep = errors.New("osc: nesting too deep")

	// ErrFrameTooLarge is a fatal stream framing error: the declared
	// length of a frame exceeds the configured maximum. The connection
	// cannot be trusted afterwards and should be dropped.
	ErrFrameTooLarge = errors.New("osc: framed packet exceeds maximum size")
)
