// Package evflag implements the event-flag bitset (component C1):
// a fixed-width bit array shared by a program's state sets, used to
// rendezvous on event-flag set/clear and to wake waiting state sets.
package evflag

import "sync"

const wordBits = 64

// WakeFunc is called with the bit index that changed (0 means "wake
// unconditionally", used for connection events and shutdown) whenever
// Set mutates a bit. It runs after the bitset's lock has been
// released, once the bit is already set, so a woken state set that
// tests the flag sees it set.
type WakeFunc func(bit int)

// Set is a fixed-width bit array. Bit 0 is reserved ("no flag"); a Set
// sized for n usable flags allocates n+1 bits.
type Set struct {
	mu    sync.Mutex
	words []uint64
	n     int // number of usable flags (bits 1..n)
	wake  WakeFunc
}

// New creates a bitset with n usable flags (ids 1..n). wake may be nil.
func New(n int, wake WakeFunc) *Set {
	total := n + 1
	return &Set{
		words: make([]uint64, (total+wordBits-1)/wordBits),
		n:     n,
		wake:  wake,
	}
}

// N returns the number of usable flag ids (1..N).
func (s *Set) N() int { return s.n }

func (s *Set) wordIndex(k int) (int, uint64) {
	return k / wordBits, uint64(1) << uint(k%wordBits)
}

// Set arms flag k and wakes any state set whose event mask includes it.
func (s *Set) Set(k int) {
	s.mu.Lock()
	w, bit := s.wordIndex(k)
	s.words[w] |= bit
	wake := s.wake
	s.mu.Unlock()
	if wake != nil {
		wake(k)
	}
}

// Clear disarms flag k without waking anyone (clearing never needs to
// wake a waiter — only a newly-set or newly-true condition does).
func (s *Set) Clear(k int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, bit := s.wordIndex(k)
	s.words[w] &^= bit
}

// Test reports whether flag k is currently set.
func (s *Set) Test(k int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, bit := s.wordIndex(k)
	return s.words[w]&bit != 0
}

// TestAndClear atomically reads and clears flag k under the same lock,
// so a concurrent Set on the same flag never races an observer out of
// seeing its own clear (testable property 6).
func (s *Set) TestAndClear(k int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, bit := s.wordIndex(k)
	was := s.words[w]&bit != 0
	s.words[w] &^= bit
	return was
}

// WakeAll signals every state set unconditionally; used for connection
// events and shutdown, where no single flag id is meaningful (flag 0).
func (s *Set) WakeAll() {
	s.mu.Lock()
	wake := s.wake
	s.mu.Unlock()
	if wake != nil {
		wake(0)
	}
}
