// Package shell implements the shell/host command surface (spec §6):
// thin functions over the program registry used for interactive
// inspection and control (seqShow, seqChanShow, seqQueueShow, seqStop,
// seqcar). Starting a program (seq) is runtime.Start / seq.Start; this
// package has no function for it. Grounded on seq_prog.c's traversal primitive being
// the only sanctioned entry point into the registry (spec §9 design
// note: "do not reach into its internals from the scheduler") and on
// seq_cmd.c's seqcar verbosity levels (SPEC_FULL.md §12).
package shell

import (
	"fmt"
	"sort"
	"strings"

	"github.com/behrlich/go-seq/internal/registry"
	"github.com/behrlich/go-seq/internal/runtime"
)

// programsNamed returns every *runtime.Program registered under name.
func programsNamed(reg *registry.Registry, name string) []*runtime.Program {
	var out []*runtime.Program
	for _, v := range reg.Find(name) {
		if p, ok := v.(*runtime.Program); ok {
			out = append(out, p)
		}
	}
	return out
}

// allPrograms returns every registered program instance, across all
// names, in name-then-instance order.
func allPrograms(reg *registry.Registry) []*runtime.Program {
	var out []*runtime.Program
	for _, name := range reg.Names() {
		out = append(out, programsNamed(reg, name)...)
	}
	return out
}

// SeqShow lists every running program instance (thread == "") or dumps
// detail on one, identified by the "name#instance" thread key produced
// at registration.
func SeqShow(reg *registry.Registry, thread string) string {
	if thread == "" {
		var b strings.Builder
		for _, p := range allPrograms(reg) {
			stats := p.ConnectionStats()
			fmt.Fprintf(&b, "%s[%d]: %d state set(s), %d channel(s), assigned=%d connected=%d\n",
				p.Name(), p.InstanceIndex(), len(p.StateSets()), len(p.Channels()),
				stats.AssignCount, stats.ConnectCount)
		}
		return b.String()
	}

	p := findByThread(reg, thread)
	if p == nil {
		return fmt.Sprintf("seqShow: no such program instance %q\n", thread)
	}
	var b strings.Builder
	stats := p.ConnectionStats()
	fmt.Fprintf(&b, "program %s[%d]\n", p.Name(), p.InstanceIndex())
	fmt.Fprintf(&b, "  assigned=%d connected=%d firstConnect=%d firstMonitor=%d monitored=%d\n",
		stats.AssignCount, stats.ConnectCount, stats.FirstConnectCount, stats.FirstMonitorCount, stats.NumMonitoredChans)
	for _, ss := range p.StateSets() {
		fmt.Fprintf(&b, "  state set %q: current state %q\n", ss.Name(), ss.CurrentStateName())
	}
	return b.String()
}

// findByThread parses a "name#instance" or "name#instance/ss" key and
// resolves it to that program instance. A bare name (no "#") resolves
// to the first registered instance of that name.
func findByThread(reg *registry.Registry, thread string) *runtime.Program {
	progKey := ""
	if strings.IndexByte(thread, '#') >= 0 {
		progKey = thread
		if j := strings.IndexByte(thread, '/'); j >= 0 {
			progKey = thread[:j]
		}
	}
	for _, p := range allPrograms(reg) {
		key := fmt.Sprintf("%s#%d", p.Name(), p.InstanceIndex())
		if key == progKey || (progKey == "" && p.Name() == thread) {
			return p
		}
	}
	return nil
}

// SeqChanShow enumerates a program instance's channels, optionally
// filtered: "+pattern" lists only connected channels whose name
// contains pattern, "-pattern" only disconnected, a bare pattern is an
// unfiltered substring match (spec §6 / SPEC_FULL.md §12).
func SeqChanShow(reg *registry.Registry, thread, pattern string) string {
	p := findByThread(reg, thread)
	if p == nil {
		return fmt.Sprintf("seqChanShow: no such program instance %q\n", thread)
	}

	wantConnected, wantDisconnected, substr := parseChanFilter(pattern)

	var b strings.Builder
	for _, ch := range p.Channels() {
		if substr != "" && !strings.Contains(ch.Name(), substr) {
			continue
		}
		connected := ch.Connected()
		if wantConnected && !connected {
			continue
		}
		if wantDisconnected && connected {
			continue
		}
		status := "disconnected"
		if connected {
			status = "connected"
		}
		assigned := "unassigned"
		if ch.Assigned() {
			assigned = ch.PVName()
		}
		fmt.Fprintf(&b, "  %-20s %-12s pv=%-20s monitored=%v queued=%v\n",
			ch.Name(), status, assigned, ch.Monitored(), ch.Queued())
	}
	return b.String()
}

func parseChanFilter(pattern string) (wantConnected, wantDisconnected bool, substr string) {
	if pattern == "" {
		return false, false, ""
	}
	switch pattern[0] {
	case '+':
		return true, false, pattern[1:]
	case '-':
		return false, true, pattern[1:]
	default:
		return false, false, pattern
	}
}

// SeqQueueShow dumps the usage of every queued channel's monitor
// queue on a program instance.
func SeqQueueShow(reg *registry.Registry, thread string) string {
	p := findByThread(reg, thread)
	if p == nil {
		return fmt.Sprintf("seqQueueShow: no such program instance %q\n", thread)
	}
	var b strings.Builder
	for _, ch := range p.Channels() {
		if !ch.Queued() {
			continue
		}
		used, capacity := ch.QueueUsage()
		fmt.Fprintf(&b, "  %-20s %d/%d\n", ch.Name(), used, capacity)
	}
	return b.String()
}

// SeqStop requests an orderly shutdown of the one program instance
// that thread resolves to (see findByThread); other instances of the
// same name keep running.
func SeqStop(reg *registry.Registry, thread string) string {
	p := findByThread(reg, thread)
	if p == nil {
		return fmt.Sprintf("seqStop: no such program instance %q\n", thread)
	}
	p.Stop()
	return fmt.Sprintf("seqStop: %s[%d] stopped\n", p.Name(), p.InstanceIndex())
}

// Seqcar prints a per-program connectivity report at increasing
// verbosity: 0 = summary count, 1 = per-channel connected/disconnected,
// 2 = + PV name and status/severity (SPEC_FULL.md §12, grounded on
// seq_cmd.c's seqcar verbosity argument).
func Seqcar(reg *registry.Registry, level int) string {
	var b strings.Builder
	names := reg.Names()
	sort.Strings(names)
	for _, name := range names {
		for _, p := range programsNamed(reg, name) {
			stats := p.ConnectionStats()
			fmt.Fprintf(&b, "%s[%d]: %d/%d connected\n", p.Name(), p.InstanceIndex(), stats.ConnectCount, stats.AssignCount)
			if level < 1 {
				continue
			}
			for _, ch := range p.Channels() {
				if !ch.Assigned() {
					continue
				}
				state := "DISCONNECTED"
				if ch.Connected() {
					state = "CONNECTED"
				}
				if level < 2 {
					fmt.Fprintf(&b, "    %-20s %s\n", ch.Name(), state)
					continue
				}
				st := ch.Status()
				fmt.Fprintf(&b, "    %-20s %s pv=%s sev=%d msg=%q\n", ch.Name(), state, ch.PVName(), st.Severity, st.Message)
			}
		}
	}
	return b.String()
}
