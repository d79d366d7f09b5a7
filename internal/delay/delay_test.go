package delay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayFiresAfterDeadline(t *testing.T) {
	var s Set
	t0 := time.Now()
	s.Clear(t0, false, false)
	id := s.Arm(0.050)

	assert.False(t, s.Test(id, t0.Add(10*time.Millisecond)))
	assert.True(t, s.Test(id, t0.Add(60*time.Millisecond)))
}

func TestDelayLatchesOnceExpired(t *testing.T) {
	var s Set
	t0 := time.Now()
	s.Clear(t0, false, false)
	id := s.Arm(0.010)
	require.True(t, s.Test(id, t0.Add(20*time.Millisecond)))
	// Even evaluated against an earlier instant, the latch stays set
	// until Clear runs again.
	assert.True(t, s.Test(id, t0))
}

func TestGetTimeoutMinimumOfArmed(t *testing.T) {
	var s Set
	t0 := time.Now()
	s.Clear(t0, false, false)
	s.Arm(0.100)
	s.Arm(0.050)
	s.Arm(0.200)

	pending, wait := s.GetTimeout(t0)
	require.True(t, pending)
	assert.InDelta(t, 0.050, wait.Seconds(), 0.005)
}

func TestGetTimeoutNoneArmed(t *testing.T) {
	var s Set
	t0 := time.Now()
	s.Clear(t0, false, false)
	pending, _ := s.GetTimeout(t0)
	assert.False(t, pending)
}

func TestGetTimeoutImmediateWhenAlreadyElapsed(t *testing.T) {
	var s Set
	t0 := time.Now()
	s.Clear(t0, false, false)
	s.Arm(0.010)
	pending, wait := s.GetTimeout(t0.Add(50 * time.Millisecond))
	require.True(t, pending)
	assert.Equal(t, time.Duration(0), wait)
}

// TestScenarioS5SelfTransitionPreservesEntryTime mirrors end-to-end
// scenario S5: a self-transition with NORESETTIMERS must evaluate an
// armed delay against the original entry time, not the self-transition
// time.
func TestScenarioS5SelfTransitionPreservesEntryTime(t *testing.T) {
	var s Set
	t0 := time.Now()
	s.Clear(t0, false, false)
	id := s.Arm(0.050)

	selfTransitionAt := t0.Add(30 * time.Millisecond)
	s.Clear(selfTransitionAt, true, true) // t- option: keep timeEntered == t0
	id = s.Arm(0.050)

	assert.Equal(t, t0, s.TimeEntered())
	assert.False(t, s.Test(id, t0.Add(45*time.Millisecond)))
	assert.True(t, s.Test(id, t0.Add(55*time.Millisecond)))
}

func TestSelfTransitionWithoutNoResetTimersResetsEntryTime(t *testing.T) {
	var s Set
	t0 := time.Now()
	s.Clear(t0, false, false)
	s.Arm(0.050)

	t1 := t0.Add(30 * time.Millisecond)
	s.Clear(t1, true, false)
	assert.Equal(t, t1, s.TimeEntered())
}
