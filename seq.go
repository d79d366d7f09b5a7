// Package seq is a concurrent state-notation runtime: it executes
// programs describing one or more concurrent finite state machines
// ("state sets") whose transitions are driven by asynchronous
// process-variable (PV) events, event flags, and timed delays.
//
// Programs are supplied as a ProgramTable — a struct literal of
// compiled state descriptors and their five callbacks (entry, exit,
// delay-arming, event-evaluation, action) — rather than parsed from
// source; the state-notation compiler itself is out of scope (see
// SPEC_FULL.md §6).
package seq

import (
	"github.com/behrlich/go-seq/internal/channel"
	"github.com/behrlich/go-seq/internal/pv"
	"github.com/behrlich/go-seq/internal/registry"
	"github.com/behrlich/go-seq/internal/runtime"
	"github.com/behrlich/go-seq/internal/vartype"
)

// Options is the runtime option bitset (spec §6).
type Options = runtime.Options

const (
	OptAsync = runtime.OptAsync
	OptConn  = runtime.OptConn
	OptDebug = runtime.OptDebug
	OptNewEF = runtime.OptNewEF
	OptMain  = runtime.OptMain
	OptReent = runtime.OptReent
	OptSafe  = runtime.OptSafe
)

// StateOptions is the per-state option bitset (spec §6).
type StateOptions = runtime.StateOptions

const (
	OptDoEntryFromSelf = runtime.OptDoEntryFromSelf
	OptDoExitToSelf    = runtime.OptDoExitToSelf
	OptNoResetTimers   = runtime.OptNoResetTimers
)

// Tag identifies a channel's SNL scalar type.
type Tag = vartype.Tag

const (
	Char   = vartype.Char
	Short  = vartype.Short
	Long   = vartype.Long
	Float  = vartype.Float
	Double = vartype.Double
	String = vartype.String
)

// Mode selects a get/put's blocking behavior.
type Mode = channel.Mode

const (
	Default = channel.Default
	Async   = channel.Async
	Sync    = channel.Sync
)

// NoEvFlag is the sentinel "no companion event flag" id (event flag 0
// is reserved; spec §9).
const NoEvFlag = channel.NoEvFlag

// DefaultTimeout is the fallback synchronous get/put wait.
const DefaultTimeout = channel.DefaultTimeout

// Client is the consumed PV-transport interface (component C5).
type Client = pv.Client

// StateSet is the handle user action/event code receives: channel
// access, event-flag test/set/clear, delay arm/test, and the
// state-change primitive.
type StateSet = runtime.StateSet

// ChannelDesc is one compiled channel descriptor (seqChan[] entry).
type ChannelDesc = runtime.ChannelDesc

// StateDesc is one compiled state descriptor (seqState[] entry): the
// five callbacks plus its event mask and per-state options.
type StateDesc = runtime.StateDesc

// StateSetDesc is one compiled state-set descriptor (seqSS[] entry).
type StateSetDesc = runtime.StateSetDesc

// ProgramTable is the compiled program artifact a caller builds (by
// hand, or with a future generator) and passes to Start.
type ProgramTable = runtime.ProgramTable

// EntryFunc, ExitFunc, DelayFunc, EventFunc, ActionFunc are the five
// per-state callback shapes.
type (
	EntryFunc  = runtime.EntryFunc
	ExitFunc   = runtime.ExitFunc
	DelayFunc  = runtime.DelayFunc
	EventFunc  = runtime.EventFunc
	ActionFunc = runtime.ActionFunc
)

// ConnectionStats exposes the first-connect/first-monitor counters for
// seqShow/seqcar-style introspection (SPEC_FULL.md §12).
type ConnectionStats = runtime.ConnectionStats

// Registry is the process-wide program registry (component C9). A
// single Registry should be shared by every program an application
// starts, the way the shell commands expect to see every running
// instance.
type Registry = registry.Registry

// NewRegistry creates an empty program registry.
func NewRegistry() *Registry { return registry.New() }

// Program is a running program instance (component C7): it owns the
// program lock, event-flag bitset, channel array, and state-set
// array, and provides the runtime assign/stop surface (per-channel
// monitor control is on the channels returned by Channels).
type Program struct {
	rt *runtime.Program
}

// Start validates table, parses macros (the table's embedded macro
// string first, then macroStr — the caller wins on conflict, spec
// §4.7), creates the channel and state-set arrays, registers the
// instance in reg, and launches one goroutine per state set.
//
// Under the CONN option, entry actions are held until every assigned
// channel connects and every monitored channel delivers a first
// sample (spec §4.3); that wait happens inside each state set's own
// goroutine, so Start itself returns as soon as setup completes.
func Start(table *ProgramTable, macroStr string, client Client, reg *Registry) (*Program, error) {
	rt, err := runtime.Start(table, macroStr, client, reg, nil)
	if err != nil {
		return nil, translateStartError(table, err)
	}
	return &Program{rt: rt}, nil
}

func translateStartError(table *ProgramTable, err error) error {
	name := ""
	if table != nil {
		name = table.Name
	}
	if _, ok := err.(*runtime.ConfigError); ok {
		return NewError("start", ErrCodeConfiguration, err.Error())
	}
	return NewProgramError("start", name, -1, ErrCodeTransport, err.Error())
}

// Name returns the program instance's (possibly macro-overridden) name.
func (p *Program) Name() string { return p.rt.Name() }

// InstanceIndex returns the instance index assigned by the registry.
func (p *Program) InstanceIndex() int { return p.rt.InstanceIndex() }

// Channels returns the program's channel array in compiled order.
func (p *Program) Channels() []*channel.Channel { return p.rt.Channels() }

// StateSets returns the program's state-set array in compiled order.
func (p *Program) StateSets() []*StateSet { return p.rt.StateSets() }

// ConnectionStats returns a snapshot of the first-connect/first-monitor
// counters.
func (p *Program) ConnectionStats() ConnectionStats { return p.rt.ConnectionStats() }

// Assign rewires channel idx's PV binding at runtime.
func (p *Program) Assign(idx int, name string) error { return p.rt.Assign(idx, name) }

// Stop requests an orderly shutdown of every state set, then
// disconnects all channels and deregisters the instance (seqStop,
// spec §6).
func (p *Program) Stop() { p.rt.Stop() }

// Internal returns the underlying *runtime.Program, for packages
// (internal/shell) that need the full registry-stored value without
// widening Program's own public surface.
func (p *Program) Internal() *runtime.Program { return p.rt }
