package osc

import (
	"fmt"
	"log/slog"
	"sync"
)

// Server walks parsed packets and dispatches their messages to the callbacks
// registered in an AddressSpace. Immediate callbacks run synchronously on the
// goroutine that delivered the packet; queued callbacks are deferred to a
// multi-producer/single-consumer queue drained by Drain, the external tick.
//
// The server performs no I/O of its own: a transport hands it raw buffers
// via DispatchPacket.
type Server struct {
	// Space holds the registrations resolved for every message. Required.
	Space *AddressSpace

	// Logger receives per-callback panics and parse failures. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// Monitor, when set, is reported every received message.
	Monitor *Monitor

	// Metrics, when set, is updated during dispatch.
	Metrics *Metrics

	queue    deferredQueue
	mu       sync.Mutex
	disposed bool
}

// NewServer returns a Server dispatching into the given address space.
func NewServer(space *AddressSpace) *Server {
	return &Server{Space: space}
}

// Dispose marks the server disposed; DispatchPacket and Drain fail with
// ErrDisposed afterwards. Queued entries are discarded.
func (s *Server) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	s.queue.clear()
}

func (s *Server) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// DispatchPacket parses one raw packet and dispatches its messages. origin
// describes the peer for logging and monitoring. The buffer is only read
// during the call; the caller may reuse it afterwards.
//
// Within a bundle, child messages dispatch in declared order before any
// child bundle is descended into. Callback panics are caught, logged, and do
// not stop the remaining callbacks.
func (s *Server) DispatchPacket(data []byte, origin string) error {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return fmt.Errorf("DispatchPacket: %w", ErrDisposed)
	}

	elem, err := ParsePacket(data)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.ParseFailures.Inc()
		}
		s.log().Warn("osc: dropping unparseable packet",
			"origin", origin, "bytes", len(data), "err", err)
		return fmt.Errorf("DispatchPacket: %w", err)
	}
	if s.Metrics != nil {
		s.Metrics.PacketsParsed.Inc()
	}

	switch e := elem.(type) {
	case *Message:
		s.dispatchMessage(e, origin)
	case *Bundle:
		s.dispatchBundle(e, origin)
	}
	return nil
}

// dispatchBundle dispatches all immediate child messages, in bundle order,
// before descending into child bundles.
func (s *Server) dispatchBundle(b *Bundle, origin string) {
	for _, m := range b.Messages {
		s.dispatchMessage(m, origin)
	}
	for _, nested := range b.Bundles {
		s.dispatchBundle(nested, origin)
	}
}

func (s *Server) dispatchMessage(m *Message, origin string) {
	addr, err := m.Address()
	if err != nil {
		return
	}

	matches, err := s.Space.FindMatchingCallbacks(addr, nil)
	if err != nil {
		s.log().Warn("osc: cannot resolve address", "origin", origin, "address", addr, "err", err)
		return
	}

	for _, cb := range matches {
		if cb.Read != nil {
			s.invoke(cb.Read, m, origin, addr)
		}
		if cb.Queued != nil {
			s.queue.push(cb.Queued)
			if s.Metrics != nil {
				s.Metrics.QueueDepth.Set(float64(s.queue.len()))
			}
		}
	}
	if s.Metrics != nil {
		s.Metrics.MessagesDispatched.Inc()
	}
	if s.Monitor != nil {
		s.Monitor.report(DirectionReceived, origin, m)
	}
}

// invoke runs one immediate callback with panic isolation. The message view
// must be fully read before the callback returns.
func (s *Server) invoke(read ReadFunc, m *Message, origin, addr string) {
	defer func() {
		if r := recover(); r != nil {
			if s.Metrics != nil {
				s.Metrics.CallbackPanics.Inc()
			}
			s.log().Error("osc: callback panic",
				"origin", origin, "address", addr, "panic", r)
		}
	}()
	read(m)
}

// Drain runs every queued callback in FIFO order on the calling goroutine.
// Call it from exactly one goroutine, typically a main-loop tick. Panics are
// caught and logged per entry and do not stop the drain.
func (s *Server) Drain() error {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return fmt.Errorf("Drain: %w", ErrDisposed)
	}

	for _, fn := range s.queue.take() {
		s.runQueued(fn)
	}
	if s.Metrics != nil {
		s.Metrics.QueueDepth.Set(float64(s.queue.len()))
	}
	return nil
}

func (s *Server) runQueued(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if s.Metrics != nil {
				s.Metrics.CallbackPanics.Inc()
			}
			s.log().Error("osc: queued callback panic", "panic", r)
		}
	}()
	fn()
}

// QueueLen returns the number of callbacks waiting for the next Drain.
func (s *Server) QueueLen() int {
	return s.queue.len()
}

// deferredQueue is the multi-producer/single-consumer callback queue.
// Producers are receive goroutines; the sole consumer is the Drain caller.
type deferredQueue struct {
	mu      sync.Mutex
	entries []func()
}

func (q *deferredQueue) push(fn func()) {
	q.mu.Lock()
	q.entries = append(q.entries, fn)
	q.mu.Unlock()
}

// take removes and returns the current entries in FIFO order. Entries pushed
// during a drain are picked up by the next one.
func (q *deferredQueue) take() []func() {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()
	return entries
}

func (q *deferredQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *deferredQueue) clear() {
	q.mu.Lock()
	q.entries = nil
	q.mu.Unlock()
}
