package runtime

import (
	"sync"
	"time"

	"github.com/behrlich/go-seq/internal/channel"
	"github.com/behrlich/go-seq/internal/delay"
	"github.com/behrlich/go-seq/internal/logging"
	"github.com/behrlich/go-seq/internal/pv"
)

// StateSet is one running state machine (SSCB, spec §3). It owns its
// own current/next/previous state indices, its armed delay set, and
// — under safe mode — a per-channel local snapshot refreshed once per
// transition evaluation (component C4).
type StateSet struct {
	id     channel.SSID
	name   string
	prog   *Program
	states []StateDesc
	logger *logging.Logger

	curIdx, nextIdx, prevIdx int

	syncSem chan struct{} // capacity 1: coalesces wakeups between evaluations
	dead    chan struct{}

	delays delay.Set

	maskMu sync.RWMutex
	mask   map[int]struct{}

	safeMu      sync.Mutex
	localValues map[int][]byte
	localStatus map[int]pv.Status
}

func newStateSet(id channel.SSID, desc StateSetDesc, prog *Program) *StateSet {
	return &StateSet{
		id:          id,
		name:        desc.Name,
		prog:        prog,
		states:      desc.States,
		logger:      prog.logger.WithStateSet(desc.Name),
		syncSem:     make(chan struct{}, 1),
		dead:        make(chan struct{}),
		mask:        make(map[int]struct{}),
		localValues: make(map[int][]byte),
		localStatus: make(map[int]pv.Status),
	}
}

// Name returns the state set's declared name.
func (ss *StateSet) Name() string { return ss.name }

// CurrentStateName returns the name of the state currently being
// evaluated (for seqShow-style introspection).
func (ss *StateSet) CurrentStateName() string {
	if ss.curIdx < 0 || ss.curIdx >= len(ss.states) {
		return ""
	}
	return ss.states[ss.curIdx].Name
}

// Vars returns the scratch variable area for plain (non-channel-bound)
// program variables — loop counters, accumulators, and the like. It
// is shared across every state set of this program instance, matching
// the reference runtime's single variable-area-per-instance layout
// (spec §3 SPROG "variable area").
func (ss *StateSet) Vars() []byte { return ss.prog.vars }

// Channel returns the channel at the given compiled index.
func (ss *StateSet) Channel(idx int) *channel.Channel {
	return ss.prog.channels[idx]
}

// ID returns the channel-package SSID used to key per-state-set
// completion bookkeeping on Channel.
func (ss *StateSet) ID() channel.SSID { return ss.id }

// TestEvent reports whether event flag k is currently set.
func (ss *StateSet) TestEvent(k int) bool { return ss.prog.evflags.Test(k) }

// SetEvent arms event flag k, waking any state set (including this
// one) whose current mask includes it.
func (ss *StateSet) SetEvent(k int) { ss.prog.evflags.Set(k) }

// ClearEvent disarms event flag k.
func (ss *StateSet) ClearEvent(k int) { ss.prog.evflags.Clear(k) }

// TestAndClearEvent atomically tests and clears event flag k
// (testable property 6).
func (ss *StateSet) TestAndClearEvent(k int) bool { return ss.prog.evflags.TestAndClear(k) }

// ArmDelay registers one delay(seconds) occurrence for the state
// currently being entered, returning its dense id (stable across
// re-entries as long as DelayFunc calls ArmDelay in the same order
// every time, per spec §4.6).
func (ss *StateSet) ArmDelay(seconds float64) int { return ss.delays.Arm(seconds) }

// Delay reports whether the delay registered under id has fired yet
// (a latch: stays true until the owning state is re-entered).
func (ss *StateSet) Delay(id int) bool { return ss.delays.Test(id, time.Now()) }

// TimeEntered returns the wall-clock time the current state was last
// (really) entered, respecting NORESETTIMERS self-transitions.
func (ss *StateSet) TimeEntered() time.Time { return ss.delays.TimeEntered() }

// SetNextState overrides the transition target chosen for this
// evaluation (spec §4.5 step 7: "the action is free to overwrite
// nextState via the state-change primitive").
func (ss *StateSet) SetNextState(name string) bool {
	for i, st := range ss.states {
		if st.Name == name {
			ss.nextIdx = i
			return true
		}
	}
	return false
}

// SetNextStateIndex overrides the transition target by compiled index.
func (ss *StateSet) SetNextStateIndex(idx int) {
	if idx >= 0 && idx < len(ss.states) {
		ss.nextIdx = idx
	}
}

// ChannelValue returns the value and status a transition evaluation or
// action should see for channel idx: under safe mode, the state set's
// local snapshot (refreshed once at the top of the current
// evaluation); otherwise the channel's always-current shared slot.
func (ss *StateSet) ChannelValue(idx int) ([]byte, pv.Status) {
	if !ss.prog.table.Options.Has(OptSafe) {
		return ss.Channel(idx).CurrentValue()
	}
	ss.safeMu.Lock()
	defer ss.safeMu.Unlock()
	return ss.localValues[idx], ss.localStatus[idx]
}

// setMask records the event mask for the state currently being
// entered (spec §4.5 step 1: "set the state set's event mask to
// st.eventMask").
func (ss *StateSet) setMask(bits []int) {
	ss.maskMu.Lock()
	defer ss.maskMu.Unlock()
	ss.mask = make(map[int]struct{}, len(bits))
	for _, b := range bits {
		ss.mask[b] = struct{}{}
	}
}

// hasBit reports whether bit k is in the state set's current event
// mask, or k is 0 (the unconditional-wake sentinel).
func (ss *StateSet) hasBit(k int) bool {
	if k == 0 {
		return true
	}
	ss.maskMu.RLock()
	defer ss.maskMu.RUnlock()
	_, ok := ss.mask[k]
	return ok
}

// wake is the program's per-state-set half of wakeup(k) (spec §4.1):
// a non-blocking signal of the sync semaphore.
func (ss *StateSet) wake() {
	select {
	case ss.syncSem <- struct{}{}:
	default:
	}
}

// refreshDirty implements ss_read_all_buffer (spec §4.4): for every
// channel whose dirty flag is set for this state set, copy the shared
// slot into the local snapshot and clear the flag.
func (ss *StateSet) refreshDirty() {
	ss.safeMu.Lock()
	defer ss.safeMu.Unlock()
	for idx, ch := range ss.prog.channels {
		if v, st, changed := ch.ReadIfDirty(ss.id); changed {
			ss.localValues[idx] = v
			ss.localStatus[idx] = st
		}
	}
}

// seedLocalBuffer populates every channel's local snapshot once at
// start, regardless of dirty flags, so a safe-mode state set's first
// evaluation is not reading a nil slice before any callback has fired.
func (ss *StateSet) seedLocalBuffer() {
	ss.safeMu.Lock()
	defer ss.safeMu.Unlock()
	for idx, ch := range ss.prog.channels {
		v, st := ch.CurrentValue()
		ss.localValues[idx] = v
		ss.localStatus[idx] = st
	}
}

// run is the per-state-set main loop (component C6, spec §4.5). It
// runs on its own goroutine, pinned to an OS thread the way the
// teacher's Runner.ioLoop pins each queue's goroutine.
func (ss *StateSet) run() {
	defer close(ss.dead)

	lockOSThreadAndApplyPriority(ss.prog.priority, ss.logger)

	if ss.prog.table.Options.Has(OptConn) {
		select {
		case <-ss.prog.ready:
		case <-ss.prog.die:
			return
		}
	}

	if ss.prog.table.Options.Has(OptSafe) {
		ss.seedLocalBuffer()
	}

	ss.curIdx = 0
	ss.nextIdx = 0
	ss.prevIdx = -1

	for {
		if ss.curIdx < 0 || ss.curIdx >= len(ss.states) {
			ss.logger.Error("state index out of range, stopping state set", "index", ss.curIdx)
			return
		}
		st := ss.states[ss.curIdx]
		ss.setMask(st.EventMask)

		selfTransition := ss.prevIdx == ss.curIdx
		if !selfTransition || st.Options.Has(OptDoEntryFromSelf) {
			if st.Entry != nil {
				st.Entry(ss)
			}
		}

		ss.prog.client.Flush()

		ss.delays.Clear(time.Now(), selfTransition, st.Options.Has(OptNoResetTimers))
		if st.Delay != nil {
			st.Delay(ss)
		}

		ss.wake()

		var transNum int
		matched := false
		for !matched {
			pending, wait := ss.delays.GetTimeout(time.Now())

			if pending && wait <= 0 {
				// A delay already elapsed; evaluate immediately.
			} else if pending {
				timer := time.NewTimer(wait)
				select {
				case <-ss.syncSem:
				case <-timer.C:
				case <-ss.prog.die:
					timer.Stop()
					return
				}
				timer.Stop()
			} else {
				select {
				case <-ss.syncSem:
				case <-ss.prog.die:
					return
				}
			}

			select {
			case <-ss.prog.die:
				return
			default:
			}

			if ss.prog.table.Options.Has(OptSafe) {
				ss.refreshDirty()
			}

			if st.Event == nil {
				break
			}
			transNum, matched = st.Event(ss)

			if matched && !ss.prog.table.Options.Has(OptNewEF) {
				ss.autoClearMask(st.EventMask)
			}
		}

		ss.nextIdx = ss.curIdx
		if st.Action != nil {
			st.Action(ss, transNum)
		}

		if ss.curIdx != ss.nextIdx || st.Options.Has(OptDoExitToSelf) {
			if st.Exit != nil {
				st.Exit(ss)
			}
		}

		ss.prevIdx = ss.curIdx
		ss.curIdx = ss.nextIdx
	}
}

// autoClearMask implements the NEWEF-off default: once a transition
// actually fires, event-flag bits (not channel bits) named in the mask
// are auto-cleared, mirroring the reference runtime's
// "if (ev_trig && !(sp->options & OPT_NEWEF))" guard (spec §6 NEWEF
// option) — a false poll must leave the flag alone, or a guard
// combining an event flag with another condition loses the flag
// before the condition it's waiting on ever becomes true.
func (ss *StateSet) autoClearMask(bits []int) {
	for _, b := range bits {
		if b > 0 && b <= ss.prog.evflags.N() {
			ss.prog.evflags.Clear(b)
		}
	}
}
