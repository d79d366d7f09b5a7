// Package delay implements the delay heap (component C10): a
// per-state fixed array of armed delay deadlines, evaluated against
// the state's entry time, with an expired-flag latch so a delay(d)
// guard keeps returning true once its deadline passes until the
// state is re-entered.
//
// Grounded on seq_task.c's seq_clearDelay/seq_getTimeout: delays are
// identified by a dense per-state id assigned at compile time (here,
// by call order within delayFunc), not by value, so the same delay(d)
// occurrence re-arms to the same slot on every entry to its state.
package delay

import "time"

const maxDelays = 20 // mirrors MAX_NDELAY in seqPvt.h

// Set tracks the armed delays for one state-set evaluation of one state.
type Set struct {
	timeEntered time.Time
	seconds     [maxDelays]float64
	expired     [maxDelays]bool
	armed       int
}

// Clear resets the delay set for a new state entry. If selfTransition
// is true and noResetTimers is set (the NORESETTIMERS per-state
// option), timeEntered is left unchanged so delays keep counting from
// the original entry (scenario S5); otherwise timeEntered is reset to
// now.
func (s *Set) Clear(now time.Time, selfTransition, noResetTimers bool) {
	if !(selfTransition && noResetTimers) {
		s.timeEntered = now
	}
	for i := range s.seconds {
		s.seconds[i] = 0
		s.expired[i] = false
	}
	s.armed = 0
}

// Arm registers one delay(seconds) occurrence and returns its dense id
// (0-based, assigned in call order, stable across re-entries to the
// same state since delayFunc calls Arm in the same source order every
// time).
func (s *Set) Arm(seconds float64) int {
	id := s.armed
	if id >= maxDelays {
		// The compiled program table is responsible for staying within
		// MAX_NDELAY; silently clamp to the last slot rather than panic.
		id = maxDelays - 1
	} else {
		s.armed++
	}
	s.seconds[id] = seconds
	s.expired[id] = false
	return id
}

// Test reports whether the delay at id has fired, relative to now. It
// is a latch: once true, it stays true (even across further Test
// calls with a later now) until the owning state's Clear runs.
func (s *Set) Test(id int, now time.Time) bool {
	if id < 0 || id >= maxDelays {
		return false
	}
	if s.expired[id] {
		return true
	}
	elapsed := now.Sub(s.timeEntered).Seconds()
	if elapsed >= s.seconds[id] {
		s.expired[id] = true
		return true
	}
	return false
}

// GetTimeout computes the minimum remaining time among all armed,
// not-yet-expired delays. If any has already elapsed it is marked
// expired and GetTimeout returns (true, 0) meaning "evaluate now". If
// none are armed, or all have already expired, it returns
// (false, 0) meaning "no timeout" (wait indefinitely for an event).
func (s *Set) GetTimeout(now time.Time) (pending bool, wait time.Duration) {
	elapsed := now.Sub(s.timeEntered).Seconds()
	haveMin := false
	min := 0.0
	for i := 0; i < s.armed; i++ {
		if s.expired[i] {
			continue
		}
		if elapsed >= s.seconds[i] {
			s.expired[i] = true
			return true, 0
		}
		remaining := s.seconds[i] - elapsed
		if !haveMin || remaining < min {
			min = remaining
			haveMin = true
		}
	}
	if !haveMin {
		return false, 0
	}
	return true, time.Duration(min * float64(time.Second))
}

// TimeEntered returns the wall-clock time the owning state was last
// (really) entered, per Clear's NORESETTIMERS handling.
func (s *Set) TimeEntered() time.Time {
	return s.timeEntered
}
