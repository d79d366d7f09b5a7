// Package channel implements the channel record and get/put protocol
// (component C3) plus the safe-mode double buffer (component C4).
//
// Grounded on seqPvt.h's db_channel struct and seq_if.c's
// seq_pvGet/pvPut/pvGetComplete/pvPutComplete/pvGetQ/pvFreeQ/pvFlushQ/
// pvAssign/pvMonitor/pvSync, plus seq_task.c's ss_write_buffer/
// ss_read_buffer/ss_read_all_buffer for the double buffer. The four
// ambiguous source behaviors named in spec §9 are preserved verbatim
// and flagged at their call sites below.
package channel

import (
	"fmt"
	"sync"
	"time"

	"github.com/behrlich/go-seq/internal/errcode"
	"github.com/behrlich/go-seq/internal/evflag"
	"github.com/behrlich/go-seq/internal/logging"
	"github.com/behrlich/go-seq/internal/pv"
	"github.com/behrlich/go-seq/internal/ring"
	"github.com/behrlich/go-seq/internal/vartype"
)

// Mode selects a get/put's blocking behavior.
type Mode int

const (
	// Default resolves to Async or Sync depending on the owning
	// program's "async" option (spec §4.3 get protocol).
	Default Mode = iota
	Async
	Sync
)

// DefaultTimeout is DEFAULT_TIMEOUT from the reference runtime: the
// fallback synchronous get/put wait when the caller doesn't specify one.
const DefaultTimeout = 10 * time.Second

// SSID is a dense, per-program state-set index (0-based), matching
// the reference runtime's array-indexed per-state-set bookkeeping
// (dirty flags, delay arrays).
type SSID int

// NoEvFlag is the sentinel "no companion event flag" value, matching
// event-flag id 0 being reserved (spec §9 design note).
const NoEvFlag = 0

// Channel is one program-variable-to-PV binding.
type Channel struct {
	mu sync.Mutex

	name    string
	tag     vartype.Tag
	count   int
	numSS   int
	logger  *logging.Logger
	client  pv.Client
	evflags *evflag.Set

	asyncDefault bool

	pvName    string
	assigned  bool
	connected bool
	monFlag   bool
	queued    bool

	status pv.Status
	value  []byte // shared slot: wire-format bytes for this channel's value

	dirty []bool // per-state-set dirty flag, safe-mode only

	queue *ring.Queue[[]byte]
	efID  int

	handle pv.Handle
	sub    pv.SubID

	getComplete map[SSID]bool
	putComplete map[SSID][]bool
	getWait     map[SSID]chan struct{}
	putWait     map[SSID]chan struct{}

	firstConnected bool // tracks whether firstConnectCount has already been bumped

	connectHook func(connected bool)
	monitorHook func()
}

// Config holds the compile-time-known shape of a channel (spec §6's
// seqChan[] descriptor fields).
type Config struct {
	Name         string
	Tag          vartype.Tag
	Count        int
	NumStateSets int
	Queued       bool
	QueueSize    int
	EvFlag       int // NoEvFlag if none
	Client       pv.Client
	EvFlagSet    *evflag.Set
	AsyncDefault bool
	Logger       *logging.Logger

	// ConnectHook, if set, is invoked after every real (non-duplicate)
	// connection transition, letting the program controller maintain
	// connectCount/firstConnectCount (spec §4.3 first-connect rendezvous).
	ConnectHook func(connected bool)
	// MonitorHook, if set, is invoked after every monitor sample,
	// letting the program controller maintain firstMonitorCount and
	// broadcast a non-queued channel's event bit.
	MonitorHook func()
}

// New creates an unassigned channel.
func New(cfg Config) *Channel {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	c := &Channel{
		name:         cfg.Name,
		tag:          cfg.Tag,
		count:        cfg.Count,
		numSS:        cfg.NumStateSets,
		logger:       logger.WithChannel(cfg.Name),
		client:       cfg.Client,
		evflags:      cfg.EvFlagSet,
		asyncDefault: cfg.AsyncDefault,
		efID:         cfg.EvFlag,
		value:        make([]byte, cfg.Tag.Size()*cfg.Count),
		dirty:        make([]bool, cfg.NumStateSets),
		getComplete:  make(map[SSID]bool),
		putComplete:  make(map[SSID][]bool),
		getWait:      make(map[SSID]chan struct{}),
		putWait:      make(map[SSID]chan struct{}),
		connectHook:  cfg.ConnectHook,
		monitorHook:  cfg.MonitorHook,
	}
	if cfg.Queued {
		size := cfg.QueueSize
		if size <= 0 {
			size = 1
		}
		c.queued = true
		c.queue = ring.New[[]byte](size)
	}
	return c
}

func (c *Channel) Name() string { return c.name }

// PVName returns the currently bound PV name ("" if unassigned).
func (c *Channel) PVName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pvName
}

// Monitored reports whether the channel's monitor is switched on
// (monFlag). The flag survives an unassign, which drops the
// subscription itself, so that the next Assign re-arms it.
func (c *Channel) Monitored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monFlag
}

// Queued reports whether this channel buffers monitor samples in a ring.
func (c *Channel) Queued() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queued
}

// QueueUsage returns (used, capacity) for a queued channel's ring, or
// (0, 0) if the channel is not queued.
func (c *Channel) QueueUsage() (used, capacity int) {
	c.mu.Lock()
	q := c.queue
	c.mu.Unlock()
	if q == nil {
		return 0, 0
	}
	return q.Used(), q.NumElems()
}

// Status returns the channel's current status/severity/message
// without consulting the safe-mode dirty bookkeeping.
func (c *Channel) Status() pv.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Assign rewires the PV binding. An empty name unassigns. Reissues the
// monitor if monFlag is set and the channel is (re)assigned to a name.
func (c *Channel) Assign(name string) error {
	c.mu.Lock()
	client := c.client
	oldHandle := c.handle
	wasAssigned := c.assigned
	monFlag := c.monFlag
	sub := c.sub
	c.mu.Unlock()

	if wasAssigned {
		if monFlag && sub != nil {
			_ = client.MonitorOff(oldHandle, sub)
		}
		_ = client.DestroyVar(oldHandle)
		c.mu.Lock()
		c.assigned = false
		c.connected = false
		c.handle = nil
		c.sub = nil
		c.mu.Unlock()
	}

	if name == "" {
		c.mu.Lock()
		c.pvName = ""
		c.mu.Unlock()
		return nil
	}

	handle, err := client.CreateVar(name, c.onConnect)
	if err != nil {
		c.logger.Error("assign failed", "pv", name, "err", err)
		return err
	}

	c.mu.Lock()
	c.pvName = name
	c.assigned = true
	c.handle = handle
	c.firstConnected = false
	c.mu.Unlock()

	if monFlag {
		return c.Monitor(true)
	}
	return nil
}

// onConnect is the adapter's connection-transition callback. It
// preserves the documented idempotence: a repeated "connected" or
// "disconnected" without an intervening opposite transition is logged
// and otherwise ignored (spec §9).
func (c *Channel) onConnect(h pv.Handle, connected bool) {
	c.mu.Lock()
	if c.connected == connected {
		c.logger.Debug("duplicate connection transition ignored", "connected", connected)
		c.mu.Unlock()
		return
	}
	c.connected = connected
	if connected {
		c.status = pv.Status{Timestamp: time.Now()}
	} else {
		c.status = pv.Status{Message: "disconnected", Severity: pv.SeverityInvalid, Timestamp: time.Now()}
	}
	hook := c.connectHook
	c.mu.Unlock()

	if connected && c.evflags != nil {
		c.evflags.WakeAll()
	}
	if hook != nil {
		hook(connected)
	}
}

// Connected reports the channel's current connection state.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Assigned reports whether the channel currently has a PV binding.
func (c *Channel) Assigned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assigned
}

// Monitor arms or disarms the standing subscription.
func (c *Channel) Monitor(on bool) error {
	c.mu.Lock()
	if !c.assigned {
		c.mu.Unlock()
		return errUnassigned(c.name)
	}
	handle := c.handle
	existingSub := c.sub
	c.mu.Unlock()

	if !on {
		if existingSub != nil {
			err := c.client.MonitorOff(handle, existingSub)
			c.mu.Lock()
			c.sub = nil
			c.monFlag = false
			c.mu.Unlock()
			return err
		}
		return nil
	}

	sub, err := c.client.MonitorOn(handle, c.tag, c.count, c.onMonitor)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sub = sub
	c.monFlag = true
	c.mu.Unlock()
	return nil
}

// onMonitor is the adapter's monitor callback. Writes the shared slot
// and, if the channel is queued, additionally enqueues the sample and
// sets the companion event flag; otherwise it sets the companion flag
// (if any) and the owning program, through MonitorHook, broadcasts the
// channel's own event bit (spec §4.3). Queued channels copy only the
// first element of an array value into the queue entry — a
// deliberately preserved truncation (spec §9).
func (c *Channel) onMonitor(h pv.Handle, st pv.Status, value []byte) {
	c.writeSharedSlot(st, value)

	c.mu.Lock()
	queued := c.queued
	efID := c.efID
	elemSize := c.tag.Size()
	hook := c.monitorHook
	c.mu.Unlock()

	defer func() {
		if hook != nil {
			hook()
		}
	}()

	if queued {
		entry := value
		if elemSize > 0 && len(value) > elemSize {
			// Preserve the reference runtime's truncation-to-first-element
			// behavior for queued channels; not a bug to fix (spec §9).
			entry = append([]byte(nil), value[:elemSize]...)
		} else {
			entry = append([]byte(nil), value...)
		}
		if overwritten := c.queue.Put(entry); overwritten {
			c.logger.Warn("monitor queue full, sample dropped")
		}
		if efID != NoEvFlag && c.evflags != nil {
			c.evflags.Set(efID)
		}
		return
	}

	if efID != NoEvFlag && c.evflags != nil {
		c.evflags.Set(efID)
	}
}

// writeSharedSlot implements ss_write_buffer: copy the new value and
// metadata into the shared slot and mark every state set's dirty flag.
func (c *Channel) writeSharedSlot(st pv.Status, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = append([]byte(nil), value...)
	c.status = st
	for i := range c.dirty {
		c.dirty[i] = true
	}
}

// ReadIfDirty implements ss_read_buffer for one state set: if ss's
// dirty flag is set, copies the shared slot out and clears the flag.
// In non-safe-mode callers should instead use CurrentValue directly,
// since there is no dirty bookkeeping without double buffering.
func (c *Channel) ReadIfDirty(ss SSID) (value []byte, st pv.Status, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(ss) >= len(c.dirty) || !c.dirty[ss] {
		return nil, pv.Status{}, false
	}
	c.dirty[ss] = false
	return append([]byte(nil), c.value...), c.status, true
}

// CurrentValue returns the shared slot's current bytes and status,
// without consulting or clearing any dirty flag (non-safe-mode read,
// or a safe-mode read outside of the once-per-evaluation refresh).
func (c *Channel) CurrentValue() ([]byte, pv.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.value...), c.status
}

// Sync associates (or clears, with NoEvFlag) the channel's companion
// event flag.
func (c *Channel) Sync(ef int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.efID = ef
}

// PvGet initiates a value fetch. See package doc for mode semantics.
func (c *Channel) PvGet(ss SSID, mode Mode, timeout time.Duration) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return errDisconnected(c.name)
	}
	resolved := c.resolveMode(mode)
	c.getComplete[ss] = false
	handle := c.handle
	var done chan struct{}
	if resolved == Sync {
		done = make(chan struct{}, 1)
		c.getWait[ss] = done
	}
	c.mu.Unlock()

	err := c.client.GetCallback(handle, c.tag, c.count, func(h pv.Handle, st pv.Status, value []byte) {
		c.completeGet(ss, st, value)
	})
	if err != nil {
		return err
	}

	if resolved != Sync {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		c.mu.Lock()
		c.status = pv.Status{Message: "get completion timeout", Severity: pv.SeverityMajor}
		c.mu.Unlock()
		return errTimeout(c.name, "get")
	}
}

func (c *Channel) completeGet(ss SSID, st pv.Status, value []byte) {
	c.writeSharedSlot(st, value)
	c.mu.Lock()
	c.getComplete[ss] = true
	done := c.getWait[ss]
	efID := c.efID
	c.mu.Unlock()
	if done != nil {
		select {
		case done <- struct{}{}:
		default:
		}
	}
	if efID != NoEvFlag && c.evflags != nil {
		c.evflags.Set(efID)
	}
}

// PvGetComplete reports whether the outstanding get for ss has completed.
func (c *Channel) PvGetComplete(ss SSID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getComplete[ss]
}

// PvGetCancel clears ss's pending get completion flag. It does not
// abort an in-flight transport operation; a late callback simply
// flips the flag back (spec §5).
func (c *Channel) PvGetCancel(ss SSID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getComplete[ss] = false
}

// PvPut initiates a value write. In Default mode the put is
// fire-and-forget: per spec §9, PvPutComplete's result in that mode is
// unspecified/meaningless, since no callback is ever issued to set it.
func (c *Channel) PvPut(ss SSID, mode Mode, timeout time.Duration, value []byte) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return errDisconnected(c.name)
	}
	resolved := c.resolveMode(mode)
	handle := c.handle
	count := c.count
	c.mu.Unlock()

	if mode == Default {
		return c.client.PutNoBlock(handle, c.tag, count, value)
	}

	var done chan struct{}
	if resolved == Sync {
		done = make(chan struct{}, 1)
		c.mu.Lock()
		c.putWait[ss] = done
		c.mu.Unlock()
	}

	err := c.client.PutCallback(handle, c.tag, count, value, func(h pv.Handle, st pv.Status) {
		c.completePut(ss, st)
	})
	if err != nil {
		return err
	}

	if resolved != Sync {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		c.mu.Lock()
		c.status = pv.Status{Message: "put completion timeout", Severity: pv.SeverityMajor}
		c.mu.Unlock()
		return errTimeout(c.name, "put")
	}
}

func (c *Channel) completePut(ss SSID, st pv.Status) {
	c.mu.Lock()
	c.status = st
	flags := make([]bool, c.count)
	for i := range flags {
		flags[i] = true
	}
	c.putComplete[ss] = flags
	done := c.putWait[ss]
	c.mu.Unlock()
	if done != nil {
		select {
		case done <- struct{}{}:
		default:
		}
	}
}

// PvPutComplete reports, per element, whether the outstanding put for
// ss has completed, plus "any" (at least one element done) and
// "allDone" (every element done). In Default put mode this is
// unspecified by design (spec §9): the put never calls back, so these
// flags simply never become true.
func (c *Channel) PvPutComplete(ss SSID) (any, allDone bool, out []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	flags := c.putComplete[ss]
	out = append([]bool(nil), flags...)
	if len(flags) == 0 {
		return false, false, out
	}
	allDone = true
	for _, f := range flags {
		if f {
			any = true
		} else {
			allDone = false
		}
	}
	return any, allDone, out
}

// PvPutCancel clears ss's pending put completion flags.
func (c *Channel) PvPutCancel(ss SSID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.putComplete, ss)
}

// PvGetQ pops and returns one queue entry, reporting whether the flag was
// set on entry (i.e. whether the queue was non-empty at the moment of
// the call, mirroring the reference runtime's return convention).
func (c *Channel) PvGetQ() (value []byte, hadEntry bool) {
	c.mu.Lock()
	q := c.queue
	efID := c.efID
	c.mu.Unlock()
	if q == nil {
		return nil, false
	}
	v, empty := q.Get()
	if empty {
		return nil, false
	}
	if q.IsEmpty() && efID != NoEvFlag && c.evflags != nil {
		c.evflags.Clear(efID)
	}
	return v, true
}

// PvFlushQ drains the queue and clears its companion event flag.
func (c *Channel) PvFlushQ() {
	c.mu.Lock()
	q := c.queue
	efID := c.efID
	c.mu.Unlock()
	if q == nil {
		return
	}
	q.Flush()
	if efID != NoEvFlag && c.evflags != nil {
		c.evflags.Clear(efID)
	}
}

// PvFreeQ is the reference runtime's seq_pvFreeQ, which recursively
// called itself rather than calling seq_pvFlushQ — a documented source
// bug (spec §9) preserved here by implementing it as a plain alias for
// PvFlushQ rather than "fixing" its intent into something else.
func (c *Channel) PvFreeQ() {
	c.PvFlushQ()
}

func (c *Channel) resolveMode(m Mode) Mode {
	if m != Default {
		return m
	}
	if c.asyncDefault {
		return Async
	}
	return Sync
}

func errDisconnected(name string) error {
	return &chanError{name: name, msg: "disconnected", code: errcode.Disconnected}
}

func errTimeout(name, op string) error {
	return &chanError{name: name, msg: fmt.Sprintf("%s completion timeout", op), code: errcode.Timeout}
}

func errUnassigned(name string) error {
	return &chanError{name: name, msg: "monitor requires an assigned channel", code: errcode.Unassigned}
}

// chanError is the error type returned for the failures channel.go
// detects itself (disconnected, timeout, unassigned); errors from the
// PV client are returned as the client produced them. It carries a
// Code() so callers that get a *Channel straight from ss.Channel(idx)
// — not wrapped in a *seq.Error — can still classify it with
// seq.IsCode (spec §7). It has no Is method, so errors.Is against a
// *seq.Error target does not match it.
type chanError struct {
	name string
	msg  string
	code errcode.Code
}

func (e *chanError) Error() string { return fmt.Sprintf("channel %s: %s", e.name, e.msg) }

// Code implements the seq package's unexported coder interface.
func (e *chanError) Code() errcode.Code { return e.code }
