package osc

import (
	"fmt"
	"sync"
)

// ReadFunc is the immediate half of a callback pair. It runs on whatever
// goroutine delivered the message and must finish reading all argument data
// before returning; the message view is invalid afterwards.
type ReadFunc func(*Message)

// Callbacks pairs an immediate read action with an optional queued action.
// The queued action is deferred to the server's single-consumer queue and
// runs without message access, typically on a main/UI goroutine; whatever it
// needs must be extracted by Read first.
//
// Registrations are tracked by the identity of the *Callbacks pointer: the
// same pointer added twice is registered twice, and each Remove call takes
// out one registration.
type Callbacks struct {
	Read   ReadFunc
	Queued func()
}

// patternEntry is one (pattern, callback set) pair.
type patternEntry struct {
	pattern string
	set     []*Callbacks
}

// AddressSpace is the thread-safe registry mapping registered addresses and
// patterns to callback sets. A single coarse lock guards the exact-address
// map and the pattern list together, so every operation sees the two as one
// atomic unit.
type AddressSpace struct {
	mu       sync.Mutex
	methods  map[string][]*Callbacks
	patterns []patternEntry
	disposed bool
}

// NewAddressSpace returns an empty AddressSpace.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{methods: make(map[string][]*Callbacks)}
}

// AddCallbacks registers cb under the given address or pattern. Adding to an
// already registered address unions the sets (the entry is appended).
func (s *AddressSpace) AddCallbacks(addr string, cb *Callbacks) error {
	if cb == nil || (cb.Read == nil && cb.Queued == nil) {
		return fmt.Errorf("AddCallbacks: empty callback pair")
	}

	kind := Classify(addr)
	if kind == KindInvalid {
		return fmt.Errorf("AddCallbacks: %q: %w", addr, ErrInvalidAddress)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return fmt.Errorf("AddCallbacks: %w", ErrDisposed)
	}

	if kind == KindAddress {
		s.methods[addr] = append(s.methods[addr], cb)
		return nil
	}

	for i := range s.patterns {
		if s.patterns[i].pattern == addr {
			s.patterns[i].set = append(s.patterns[i].set, cb)
			return nil
		}
	}
	s.patterns = append(s.patterns, patternEntry{pattern: addr, set: []*Callbacks{cb}})
	return nil
}

// RemoveCallbacks removes one registration of cb (by pointer identity) under
// the given address or pattern. The registration entry itself is deleted
// only when its set becomes empty. It reports whether a registration was
// found.
func (s *AddressSpace) RemoveCallbacks(addr string, cb *Callbacks) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false, fmt.Errorf("RemoveCallbacks: %w", ErrDisposed)
	}

	if set, ok := s.methods[addr]; ok {
		set, removed := removeByIdentity(set, cb)
		if !removed {
			return false, nil
		}
		if len(set) == 0 {
			delete(s.methods, addr)
		} else {
			s.methods[addr] = set
		}
		return true, nil
	}

	for i := range s.patterns {
		if s.patterns[i].pattern != addr {
			continue
		}
		set, removed := removeByIdentity(s.patterns[i].set, cb)
		if !removed {
			return false, nil
		}
		if len(set) == 0 {
			s.patterns = append(s.patterns[:i], s.patterns[i+1:]...)
		} else {
			s.patterns[i].set = set
		}
		return true, nil
	}

	return false, nil
}

// RemoveAllCallbacks clears every registration.
func (s *AddressSpace) RemoveAllCallbacks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return fmt.Errorf("RemoveAllCallbacks: %w", ErrDisposed)
	}

	s.methods = make(map[string][]*Callbacks)
	s.patterns = nil
	return nil
}

// FindMatchingCallbacks resolves a query against the registry, appending all
// matches to dst and returning it. For a concrete address query it checks the
// exact map hit plus every registered pattern. For a pattern query (the
// monitor-side inspection path) it checks every registered concrete address
// against the query plus exact pattern-equality hits; no pattern-vs-pattern
// fuzzy matching is attempted. Result order is not guaranteed.
func (s *AddressSpace) FindMatchingCallbacks(addr string, dst []*Callbacks) ([]*Callbacks, error) {
	kind := Classify(addr)
	if kind == KindInvalid {
		return dst, fmt.Errorf("FindMatchingCallbacks: %q: %w", addr, ErrInvalidAddress)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return dst, fmt.Errorf("FindMatchingCallbacks: %w", ErrDisposed)
	}

	if kind == KindAddress {
		dst = append(dst, s.methods[addr]...)
		for i := range s.patterns {
			if Match(s.patterns[i].pattern, addr) {
				dst = append(dst, s.patterns[i].set...)
			}
		}
		return dst, nil
	}

	for registered, set := range s.methods {
		if Match(addr, registered) {
			dst = append(dst, set...)
		}
	}
	for i := range s.patterns {
		if s.patterns[i].pattern == addr {
			dst = append(dst, s.patterns[i].set...)
		}
	}
	return dst, nil
}

// Len returns the number of live registrations (exact addresses plus
// patterns).
func (s *AddressSpace) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.methods) + len(s.patterns)
}

// Dispose clears the registry and fails all subsequent operations with
// ErrDisposed.
func (s *AddressSpace) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = nil
	s.patterns = nil
	s.disposed = true
}

func removeByIdentity(set []*Callbacks, cb *Callbacks) ([]*Callbacks, bool) {
	for i, c := range set {
		if c == cb {
			return append(set[:i], set[i+1:]...), true
		}
	}
	return set, false
}
