package runtime

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/behrlich/go-seq/internal/channel"
	"github.com/behrlich/go-seq/internal/evflag"
	"github.com/behrlich/go-seq/internal/logging"
	"github.com/behrlich/go-seq/internal/macro"
	"github.com/behrlich/go-seq/internal/pv"
	"github.com/behrlich/go-seq/internal/registry"
)

// ConfigError reports a problem validating a ProgramTable at Start
// time, corresponding to spec §7's "Configuration" error kind — the
// only fatal path in the runtime.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "seq: configuration error: " + e.Msg }

// ConnectionStats is the read-only introspection surface over a
// program's first-connect/first-monitor counters (SPEC_FULL.md §12).
type ConnectionStats struct {
	AssignCount       int
	ConnectCount      int
	FirstConnectCount int
	FirstMonitorCount int
	NumMonitoredChans int
}

// Program is the program controller (component C7): it owns the
// program-wide lock, event-flag bitset, channel array, and state-set
// array, and drives start, the first-connect rendezvous, and orderly
// shutdown.
//
// Grounded on seq_task.c's sequencer() startup/shutdown path.
type Program struct {
	mu sync.Mutex

	name        string
	instanceIdx int
	table       *ProgramTable
	logger      *logging.Logger
	client      pv.Client
	reg         *registry.Registry
	macros      *macro.Table
	priority    int

	evflags   *evflag.Set
	channels  []*channel.Channel
	stateSets []*StateSet
	vars      []byte

	die       chan struct{}
	dieOnce   sync.Once
	wg        sync.WaitGroup
	ready     chan struct{}
	readyOnce sync.Once

	threadKeys []string

	assignCount       int
	connectCount      int
	firstConnectCount int
	firstMonitorCount int
	numMonitoredChans int
	firstConnectSeen  []bool
	firstMonitorSeen  []bool
}

// Start validates table, parses macros, creates the channel and
// state-set arrays, registers the instance, and launches one goroutine
// per state set. It does not block on the first-connect barrier —
// that wait happens inside each state set's own goroutine so that
// Start returns promptly even under the CONN option.
func Start(table *ProgramTable, callerMacros string, client pv.Client, reg *registry.Registry, logger *logging.Logger) (*Program, error) {
	if table == nil {
		return nil, &ConfigError{Msg: "nil program table"}
	}
	if table.Name == "" {
		return nil, &ConfigError{Msg: "program table missing a name"}
	}
	if len(table.StateSets) == 0 {
		return nil, &ConfigError{Msg: "program table declares no state sets"}
	}
	if client == nil {
		return nil, &ConfigError{Msg: "nil PV client"}
	}

	if logger == nil {
		logger = logging.Default()
	}

	macros := macro.New()
	macros.Parse(table.Macro)
	macros.ParseOverwrite(callerMacros)

	name := table.Name
	if v, ok := macros.Get("name"); ok && v != "" {
		name = v
	}
	priority := 0
	if v, ok := macros.Get("priority"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			priority = n
		}
	}

	plogger := logger.WithProgram(name)

	numMonitored := 0
	for _, cd := range table.Channels {
		if cd.Monitor {
			numMonitored++
		}
	}

	p := &Program{
		name:             name,
		table:            table,
		logger:           plogger,
		client:           client,
		reg:              reg,
		macros:           macros,
		priority:         priority,
		die:              make(chan struct{}),
		ready:            make(chan struct{}),
		vars:             make([]byte, table.VarSize),
		numMonitoredChans: numMonitored,
		firstConnectSeen: make([]bool, len(table.Channels)),
		firstMonitorSeen: make([]bool, len(table.Channels)),
	}
	p.evflags = evflag.New(table.NumEvFlags, p.wakeup)

	if err := client.Attach(); err != nil {
		return nil, fmt.Errorf("seq: pv client attach: %w", err)
	}

	for i, cd := range table.Channels {
		idx := i
		ch := channel.New(channel.Config{
			Name:         cd.VarName,
			Tag:          cd.Tag,
			Count:        cd.Count,
			NumStateSets: len(table.StateSets),
			Queued:       cd.Queued,
			QueueSize:    cd.QueueSize,
			EvFlag:       cd.EvFlag,
			Client:       client,
			EvFlagSet:    p.evflags,
			AsyncDefault: table.Options.Has(OptAsync),
			Logger:       plogger,
			ConnectHook:  func(connected bool) { p.onChannelConnect(idx, connected) },
			MonitorHook:  func() { p.onChannelMonitor(idx) },
		})
		p.channels = append(p.channels, ch)
	}

	for i, cd := range table.Channels {
		pvName := macros.Eval(cd.PVName)
		if pvName == "" {
			continue
		}
		ch := p.channels[i]
		if err := ch.Assign(pvName); err != nil {
			plogger.Error("initial assign failed", "channel", cd.VarName, "pv", pvName, "err", err)
			continue
		}
		p.mu.Lock()
		p.assignCount++
		p.mu.Unlock()
		if cd.Monitor {
			if err := ch.Monitor(true); err != nil {
				plogger.Error("initial monitor failed", "channel", cd.VarName, "err", err)
			}
		}
	}

	for i, ssDesc := range table.StateSets {
		ss := newStateSet(channel.SSID(i), ssDesc, p)
		p.stateSets = append(p.stateSets, ss)
	}

	p.instanceIdx = reg.Add(name, p)
	for _, ss := range p.stateSets {
		key := fmt.Sprintf("%s#%d/%s", name, p.instanceIdx, ss.name)
		reg.RegisterThread(key, ss)
		p.threadKeys = append(p.threadKeys, key)
	}

	// An assign/monitor pass above may already satisfy the barrier
	// (e.g. a program with no monitored channels); re-check once all
	// bookkeeping is in place so a state set that checks p.ready
	// before any further callback still observes it closed.
	p.checkBarrier()

	if table.InitFunc != nil {
		table.InitFunc(p.vars)
	}
	if table.EntryFunc != nil {
		table.EntryFunc(p.vars)
	}

	for _, ss := range p.stateSets {
		p.wg.Add(1)
		go func(ss *StateSet) {
			defer p.wg.Done()
			ss.run()
		}(ss)
	}

	return p, nil
}

// Name returns the (possibly macro-overridden) program instance name.
func (p *Program) Name() string { return p.name }

// InstanceIndex returns the instance index assigned by the registry,
// unique among concurrently running instances of this program name.
func (p *Program) InstanceIndex() int { return p.instanceIdx }

// Channels returns the program's channel array, in compiled order.
func (p *Program) Channels() []*channel.Channel { return p.channels }

// StateSets returns the program's state-set array, in compiled order.
func (p *Program) StateSets() []*StateSet { return p.stateSets }

// ConnectionStats returns a snapshot of the first-connect/first-monitor
// counters (SPEC_FULL.md §12).
func (p *Program) ConnectionStats() ConnectionStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ConnectionStats{
		AssignCount:       p.assignCount,
		ConnectCount:      p.connectCount,
		FirstConnectCount: p.firstConnectCount,
		FirstMonitorCount: p.firstMonitorCount,
		NumMonitoredChans: p.numMonitoredChans,
	}
}

// Assign rewires channel idx's PV binding at runtime by delegating to
// that channel's Assign; it does not take the program lock and does
// not change assignCount.
func (p *Program) Assign(idx int, name string) error {
	if idx < 0 || idx >= len(p.channels) {
		return fmt.Errorf("seq: channel index %d out of range", idx)
	}
	return p.channels[idx].Assign(name)
}

func (p *Program) wakeup(bit int) {
	for _, ss := range p.stateSets {
		if ss.hasBit(bit) {
			ss.wake()
		}
	}
}

func (p *Program) onChannelConnect(idx int, connected bool) {
	p.mu.Lock()
	if connected {
		p.connectCount++
		if idx < len(p.firstConnectSeen) && !p.firstConnectSeen[idx] {
			p.firstConnectSeen[idx] = true
			p.firstConnectCount++
		}
	} else {
		p.connectCount--
	}
	p.mu.Unlock()
	p.checkBarrier()
}

func (p *Program) onChannelMonitor(idx int) {
	p.mu.Lock()
	if idx < len(p.firstMonitorSeen) && !p.firstMonitorSeen[idx] {
		p.firstMonitorSeen[idx] = true
		p.firstMonitorCount++
	}
	p.mu.Unlock()
	p.checkBarrier()
	// A non-queued channel's monitor wakes state sets waiting on the
	// channel's own bit (numEvFlags+1+index, see StateDesc.EventMask).
	if idx < len(p.channels) && !p.channels[idx].Queued() {
		p.wakeup(p.table.NumEvFlags + 1 + idx)
	}
}

// checkBarrier closes p.ready exactly once, the moment
// connectCount==assignCount and firstMonitorCount==numMonitoredChans
// (spec §4.3 first-connect/first-monitor rendezvous).
func (p *Program) checkBarrier() {
	p.mu.Lock()
	ready := p.connectCount == p.assignCount && p.firstMonitorCount == p.numMonitoredChans
	p.mu.Unlock()
	if ready {
		p.readyOnce.Do(func() { close(p.ready) })
	}
}

// Stop requests an orderly shutdown: sets die, wakes every state set
// so each exits at its next suspension point, waits for all state-set
// goroutines to exit, disconnects every channel, runs the program's
// exit function, and deregisters the instance.
func (p *Program) Stop() {
	p.dieOnce.Do(func() { close(p.die) })
	for _, ss := range p.stateSets {
		ss.wake()
	}
	p.wg.Wait()

	for _, ch := range p.channels {
		_ = ch.Assign("")
	}

	if p.table.ExitFunc != nil {
		p.table.ExitFunc(p.vars)
	}

	p.reg.Remove(p.name, p)
	for _, key := range p.threadKeys {
		p.reg.UnregisterThread(key)
	}
}
