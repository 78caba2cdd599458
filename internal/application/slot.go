package application

import (
	"errors"
	"sync"
)

// ErrSuperseded is returned when a newer request replaced the one that produced a result.
var ErrSuperseded = errors.New("superseded by a newer request")

// Slot hands out generations so only the latest request may apply its result.
type Slot struct {
	mu  sync.Mutex
	gen uint64
}

// Ticket identifies one generation of a Slot.
type Ticket struct {
	slot *Slot
	gen  uint64
}

// Begin starts a new generation and invalidates every earlier ticket.
func (s *Slot) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return Ticket{slot: s, gen: s.gen}
}

// Valid reports whether no newer Begin happened since t was issued.
func (t Ticket) Valid() bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	return t.slot.gen == t.gen
}

// Apply runs fn only if t is still current. Begin cannot interleave with fn.
func (s *Slot) Apply(t Ticket, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.slot != s || s.gen != t.gen {
		return false
	}
	fn()
	return true
}
