// Package runtime implements the state-set scheduler (component C6)
// and program controller (component C7): the per-state-set event loop
// and the program-wide lifecycle (start, first-connect rendezvous,
// shutdown) that ties together the event-flag bitset, channel array,
// macro table, and registry into one running program instance.
//
// Grounded on seq_task.c's sequencer() (program startup/shutdown) and
// ss_entry() (the per-state-set main loop, ported step-for-step per
// spec §4.5), and structurally on the teacher's
// internal/queue/runner.go Runner/ioLoop goroutine lifecycle
// (NewRunner/Start/Stop, runtime.LockOSThread + x/sys/unix priority
// calls inside the goroutine body, ctx.Done()-gated loop).
package runtime

import (
	"github.com/behrlich/go-seq/internal/channel"
	"github.com/behrlich/go-seq/internal/vartype"
)

// Options is the runtime option bitset from spec §6.
type Options uint32

const (
	OptAsync Options = 1 << iota
	OptConn
	OptDebug
	OptNewEF
	OptMain
	OptReent
	OptSafe
)

func (o Options) Has(bit Options) bool { return o&bit != 0 }

// StateOptions is the per-state option bitset from spec §6.
type StateOptions uint32

const (
	OptDoEntryFromSelf StateOptions = 1 << iota
	OptDoExitToSelf
	OptNoResetTimers
)

func (o StateOptions) Has(bit StateOptions) bool { return o&bit != 0 }

// ChannelDesc is the compiled descriptor for one seqChan[] entry.
type ChannelDesc struct {
	VarName   string
	Tag       vartype.Tag
	Count     int
	Offset    int // offset into the variable area
	Monitor   bool
	Queued    bool
	QueueSize int
	EvFlag    int // channel.NoEvFlag if none
	PVName    string
}

// EntryFunc, ExitFunc, DelayFunc, EventFunc, and ActionFunc are the
// five per-state callbacks named in spec §3 STATE and §9's "struct of
// five function pointers" design note.
type (
	EntryFunc  func(ss *StateSet)
	ExitFunc   func(ss *StateSet)
	DelayFunc  func(ss *StateSet)
	EventFunc  func(ss *StateSet) (transNum int, matched bool)
	ActionFunc func(ss *StateSet, transNum int)
)

// StateDesc is one compiled seqState[] entry: the five callbacks, the
// event mask (event-flag and channel ids that can wake a waiter in
// this state), and per-state option bits.
type StateDesc struct {
	Name       string
	Entry      EntryFunc
	Exit       ExitFunc
	Delay      DelayFunc
	Event      EventFunc
	Action     ActionFunc
	EventMask []int // bitset indices (event-flag ids, or numEvFlags+1+channel index)
	Options   StateOptions
}

// StateSetDesc is one compiled seqSS[] entry.
type StateSetDesc struct {
	Name   string
	States []StateDesc
}

// ProgramTable is the compiled program artifact (spec §6): the
// per-program static record the runtime interprets. Built by hand (or
// by a future generator) as a Go struct literal, since the SNL
// compiler itself is out of scope (spec §1, SPEC_FULL.md §6).
type ProgramTable struct {
	Name        string
	Macro       string // program-embedded macro string, parsed first
	NumEvFlags  int
	VarSize     int // size in bytes of the variable area
	Channels    []ChannelDesc
	StateSets   []StateSetDesc
	Options     Options
	InitFunc    func(vars []byte)
	EntryFunc   func(vars []byte) // program-level entry, run once before state sets start
	ExitFunc    func(vars []byte) // program-level exit, run once after state sets stop
}

// DefaultTimeout mirrors channel.DefaultTimeout for callers composing
// get/put calls without an explicit timeout.
const DefaultTimeout = channel.DefaultTimeout
