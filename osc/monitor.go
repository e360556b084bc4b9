package osc

import (
	"sync"

	"github.com/google/uuid"
)

// Direction tells a monitor subscriber whether a message was sent or
// received by this process.
type Direction int

const (
	DirectionSent Direction = iota
	DirectionReceived
)

func (d Direction) String() string {
	if d == DirectionSent {
		return "sent"
	}
	return "received"
}

// MonitorFunc observes one message. peer describes the remote end. The
// message view is only valid for the duration of the call and must not be
// retained.
type MonitorFunc func(dir Direction, peer string, msg *Message)

// Monitor is an explicit registry of diagnostic observers. Clients and
// servers that share a Monitor report every message they send or receive to
// all subscribers. There is no process-wide instance; whatever tooling needs
// one owns it and passes it in.
type Monitor struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]MonitorFunc
}

// NewMonitor returns an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{subs: make(map[uuid.UUID]MonitorFunc)}
}

// Subscribe adds an observer and returns its subscription id.
func (m *Monitor) Subscribe(fn MonitorFunc) uuid.UUID {
	id := uuid.New()
	m.mu.Lock()
	m.subs[id] = fn
	m.mu.Unlock()
	return id
}

// Unsubscribe removes the observer with the given id and reports whether it
// was subscribed.
func (m *Monitor) Unsubscribe(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return false
	}
	delete(m.subs, id)
	return true
}

// report delivers one message to every subscriber. Subscriber panics are
// swallowed so diagnostics can never take down the dispatch path.
func (m *Monitor) report(dir Direction, peer string, msg *Message) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, fn := range m.subs {
		func() {
			defer func() { _ = recover() }()
			fn(dir, peer, msg)
		}()
	}
}

// reportPacket parses an outbound buffer and reports every message in it,
// walking bundles the same way the server dispatch does.
func (m *Monitor) reportPacket(dir Direction, peer string, buf []byte) {
	m.mu.RLock()
	empty := len(m.subs) == 0
	m.mu.RUnlock()
	if empty {
		return
	}

	elem, err := ParsePacket(buf)
	if err != nil {
		return
	}
	m.reportElement(dir, peer, elem)
}

func (m *Monitor) reportElement(dir Direction, peer string, elem Element) {
	switch e := elem.(type) {
	case *Message:
		m.report(dir, peer, e)
	case *Bundle:
		for _, msg := range e.Messages {
			m.report(dir, peer, msg)
		}
		for _, nested := range e.Bundles {
			m.reportElement(dir, peer, nested)
		}
	}
}
