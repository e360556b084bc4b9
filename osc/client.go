package osc

import (
	"fmt"
)

// frame is one open element on the client's build stack.
type frame struct {
	bundle bool
	outer  bool    // the perpetual auto-bundle wrapper
	sw     *Writer // sub-writer over the reserved size field, nil at depth 0
	start  int     // offset of the element body (after the size field)
}

// Client builds OSC messages and bundles into a fixed buffer and hands
// completed packets to a transport. Begin/End calls form a state machine
// with a bounded nesting stack; in auto-bundle mode every depth-0 element is
// wrapped in a perpetually open outer bundle that flushes once its size
// reaches a threshold.
//
// A Client is not safe for concurrent use; it is driven by one sender at a
// time, the way a transport write path is.
type Client struct {
	// OnSendPacket receives every completed packet. The buffer is only
	// valid for the duration of the call.
	OnSendPacket func(buf []byte)

	// Monitor, when set, is reported every sent message.
	Monitor *Monitor

	// Peer describes the destination for monitor reporting.
	Peer string

	w          *Writer
	stack      []frame
	writeErr   error
	autoBundle bool
	threshold  int
	disposed   bool
}

// NewClient returns a Client building into a buffer of the given capacity.
// Capacity <= 0 selects MaxPacketSize.
func NewClient(capacity int) *Client {
	if capacity <= 0 {
		capacity = MaxPacketSize
	}
	return &Client{w: NewWriter(capacity)}
}

// Dispose marks the client disposed; every subsequent operation fails with
// ErrDisposed.
func (c *Client) Dispose() {
	c.disposed = true
}

// EnableAutoBundle switches on auto-bundle mode. Elements built at depth 0
// are collected into an outer bundle that is flushed once the buffer holds at
// least threshold bytes, or on an explicit Flush.
func (c *Client) EnableAutoBundle(threshold int) error {
	if c.disposed {
		return fmt.Errorf("EnableAutoBundle: %w", ErrDisposed)
	}
	if len(c.stack) > 0 {
		return fmt.Errorf("EnableAutoBundle: %w: close open elements first", ErrNoOpenFrame)
	}
	if threshold <= 0 {
		threshold = c.w.Cap() / 2
	}
	c.autoBundle = true
	c.threshold = threshold
	return nil
}

// DisableAutoBundle flushes any pending auto-bundle and switches the mode
// off.
func (c *Client) DisableAutoBundle() error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.autoBundle = false
	return nil
}

// Flush sends the pending auto-bundle, if it holds any elements, and reopens
// it. It fails if user frames are still open.
func (c *Client) Flush() error {
	if c.disposed {
		return fmt.Errorf("Flush: %w", ErrDisposed)
	}
	switch {
	case len(c.stack) == 0:
		return nil
	case len(c.stack) > 1 || !c.stack[0].outer:
		return fmt.Errorf("Flush: %d elements still open", len(c.stack))
	}

	c.stack = c.stack[:0]
	if c.w.Len() > emptyBundleSize {
		c.send(c.w.Bytes())
	}
	c.w.Reset()
	return nil
}

// emptyBundleSize is the wire size of a bundle with no elements: the 8-byte
// prefix plus the 8-byte time tag. Outermost bundles at or under this size
// are dropped, never transmitted.
const emptyBundleSize = 16

// BeginMessage starts a message with the given address (a concrete address
// or, for pattern-addressed sends, a pattern) and type tag string. The tag
// string may be given with or without the leading ','. Arguments are then
// appended with the Write methods, and EndMessage completes the element.
func (c *Client) BeginMessage(addr string, tags string) error {
	if err := c.beginElement("BeginMessage"); err != nil {
		return err
	}
	if Classify(addr) == KindInvalid {
		return fmt.Errorf("BeginMessage: %q: %w", addr, ErrInvalidAddress)
	}

	if len(tags) > 0 && tags[0] == ',' {
		tags = tags[1:]
	}
	for i := 0; i < len(tags); i++ {
		if !TypeTag(tags[i]).Valid() {
			return fmt.Errorf("BeginMessage: unsupported type tag '%c'", tags[i])
		}
	}

	mark := c.w.Len()
	f := frame{}
	if len(c.stack) > 0 {
		f.sw = c.w.FromCurrent()
		if err := c.w.WriteInt32(0); err != nil {
			return fmt.Errorf("BeginMessage: %w", err)
		}
	}
	f.start = c.w.Len()

	if err := c.w.WriteString(addr); err != nil {
		c.w.Truncate(mark)
		return fmt.Errorf("BeginMessage: %w", err)
	}
	if err := c.w.WriteString("," + tags); err != nil {
		c.w.Truncate(mark)
		return fmt.Errorf("BeginMessage: %w", err)
	}

	c.stack = append(c.stack, f)
	return nil
}

// EndMessage completes the open message. If it was the outermost element the
// packet is handed to OnSendPacket and the buffer is recycled. EndMessage
// still closes the frame after a failed argument write; the element is then
// discarded and the write error returned.
func (c *Client) EndMessage() error {
	if c.disposed {
		return fmt.Errorf("EndMessage: %w", ErrDisposed)
	}
	f, err := c.topFrame(false)
	if err != nil {
		return fmt.Errorf("EndMessage: %w", err)
	}
	c.stack = c.stack[:len(c.stack)-1]

	if c.writeErr != nil {
		err := c.writeErr
		c.writeErr = nil
		c.discard(f)
		return fmt.Errorf("EndMessage: %w", err)
	}

	if f.sw != nil {
		f.sw.WriteInt32(int32(c.w.Len() - f.start)) //nolint:errcheck // reserved in BeginMessage
	}
	return c.finishElement()
}

// BeginBundle starts a bundle with the given time tag. Use
// NewImmediateTimetag for "deliver now".
func (c *Client) BeginBundle(tt Timetag) error {
	if err := c.beginElement("BeginBundle"); err != nil {
		return err
	}

	mark := c.w.Len()
	f := frame{bundle: true}
	if len(c.stack) > 0 {
		f.sw = c.w.FromCurrent()
		if err := c.w.WriteInt32(0); err != nil {
			return fmt.Errorf("BeginBundle: %w", err)
		}
	}
	f.start = c.w.Len()

	if err := c.w.WriteBundlePrefix(); err != nil {
		c.w.Truncate(mark)
		return fmt.Errorf("BeginBundle: %w", err)
	}
	if err := c.w.WriteTimetag(tt); err != nil {
		c.w.Truncate(mark)
		return fmt.Errorf("BeginBundle: %w", err)
	}

	c.stack = append(c.stack, f)
	return nil
}

// EndBundle completes the open bundle. An outermost bundle that ends up with
// no elements is silently dropped, never transmitted.
func (c *Client) EndBundle() error {
	if c.disposed {
		return fmt.Errorf("EndBundle: %w", ErrDisposed)
	}
	f, err := c.topFrame(true)
	if err != nil {
		return fmt.Errorf("EndBundle: %w", err)
	}
	if f.outer {
		return fmt.Errorf("EndBundle: %w", ErrNoOpenFrame)
	}
	c.stack = c.stack[:len(c.stack)-1]

	if f.sw != nil {
		f.sw.WriteInt32(int32(c.w.Len() - f.start)) //nolint:errcheck // reserved in BeginBundle
	}

	if len(c.stack) == 0 && c.w.Len() <= emptyBundleSize {
		c.w.Reset()
		return nil
	}
	return c.finishElement()
}

// beginElement runs the shared Begin checks and, in auto-bundle mode, opens
// the outer wrapper at depth 0.
func (c *Client) beginElement(op string) error {
	if c.disposed {
		return fmt.Errorf("%s: %w", op, ErrDisposed)
	}
	if len(c.stack) >= MaxNestingDepth {
		return fmt.Errorf("%s: %w", op, ErrNestingTooDeep)
	}
	if len(c.stack) > 0 && !c.stack[len(c.stack)-1].bundle {
		return fmt.Errorf("%s: a message is already open", op)
	}

	if c.autoBundle && len(c.stack) == 0 {
		if err := c.w.WriteBundlePrefix(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := c.w.WriteTimetag(TimetagImmediate); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.stack = append(c.stack, frame{bundle: true, outer: true})
	}
	return nil
}

// finishElement sends a completed depth-0 packet, or checks the auto-bundle
// threshold when only the outer wrapper remains open.
func (c *Client) finishElement() error {
	switch {
	case len(c.stack) == 0:
		c.send(c.w.Bytes())
		c.w.Reset()
	case len(c.stack) == 1 && c.stack[0].outer && c.w.Len() >= c.threshold:
		return c.Flush()
	}
	return nil
}

// topFrame validates that the top of the stack is the expected element kind.
func (c *Client) topFrame(bundle bool) (frame, error) {
	if len(c.stack) == 0 {
		return frame{}, ErrNoOpenFrame
	}
	f := c.stack[len(c.stack)-1]
	if f.bundle != bundle {
		return frame{}, ErrNoOpenFrame
	}
	return f, nil
}

// discard rewinds the writer past a failed element, size field included.
func (c *Client) discard(f frame) {
	mark := f.start
	if f.sw != nil {
		mark -= bit32Size
	}
	c.w.Truncate(mark)
}

func (c *Client) send(buf []byte) {
	if c.OnSendPacket != nil {
		c.OnSendPacket(buf)
	}
	if c.Monitor != nil {
		c.Monitor.reportPacket(DirectionSent, c.Peer, buf)
	}
}

// argWriter runs one argument write inside the open message, recording the
// first failure so EndMessage can discard the element.
func (c *Client) argWriter(op string, write func(*Writer) error) error {
	if c.disposed {
		return fmt.Errorf("%s: %w", op, ErrDisposed)
	}
	if len(c.stack) == 0 || c.stack[len(c.stack)-1].bundle {
		return fmt.Errorf("%s: %w", op, ErrNoOpenFrame)
	}
	if c.writeErr != nil {
		return fmt.Errorf("%s: %w", op, c.writeErr)
	}
	if err := write(c.w); err != nil {
		c.writeErr = err
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WriteInt32 appends an 'i' argument to the open message.
func (c *Client) WriteInt32(v int32) error {
	return c.argWriter("WriteInt32", func(w *Writer) error { return w.WriteInt32(v) })
}

// WriteInt64 appends an 'h' argument to the open message.
func (c *Client) WriteInt64(v int64) error {
	return c.argWriter("WriteInt64", func(w *Writer) error { return w.WriteInt64(v) })
}

// WriteFloat32 appends an 'f' argument to the open message.
func (c *Client) WriteFloat32(v float32) error {
	return c.argWriter("WriteFloat32", func(w *Writer) error { return w.WriteFloat32(v) })
}

// WriteFloat64 appends a 'd' argument to the open message.
func (c *Client) WriteFloat64(v float64) error {
	return c.argWriter("WriteFloat64", func(w *Writer) error { return w.WriteFloat64(v) })
}

// WriteString appends an 's' argument to the open message.
func (c *Client) WriteString(s string) error {
	return c.argWriter("WriteString", func(w *Writer) error { return w.WriteString(s) })
}

// WriteBlob appends a 'b' argument to the open message.
func (c *Client) WriteBlob(p []byte) error {
	return c.argWriter("WriteBlob", func(w *Writer) error { return w.WriteBlob(p) })
}

// WriteChar appends a 'c' argument to the open message.
func (c *Client) WriteChar(ch byte) error {
	return c.argWriter("WriteChar", func(w *Writer) error { return w.WriteChar(ch) })
}

// WriteColor appends an 'r' argument to the open message.
func (c *Client) WriteColor(col Color) error {
	return c.argWriter("WriteColor", func(w *Writer) error { return w.WriteColor(col) })
}

// WriteMIDI appends an 'm' argument to the open message.
func (c *Client) WriteMIDI(m MIDIMessage) error {
	return c.argWriter("WriteMIDI", func(w *Writer) error { return w.WriteMIDI(m) })
}

// WriteTimetag appends a 't' argument to the open message.
func (c *Client) WriteTimetag(t Timetag) error {
	return c.argWriter("WriteTimetag", func(w *Writer) error { return w.WriteTimetag(t) })
}
