// Command seqsh is a small interactive-shell-style CLI exposing part of
// the spec §6 shell/host surface (seqShow, seqChanShow, seqQueueShow,
// seqcar) as subcommands over a demo program, for manual testing of the
// runtime without a real control-system transport. There are no seq or
// seqStop subcommands: every invocation starts its own demo instance
// and stops it before exiting. Grounded on the
// teacher's cmd/ublk-mem thin CLI wrapper over the public API, ported
// from stdlib flag to github.com/spf13/cobra (SPEC_FULL.md §11).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/behrlich/go-seq"
	"github.com/behrlich/go-seq/internal/pv/loopback"
	"github.com/behrlich/go-seq/internal/shell"
)

// demoTable builds a small illustrative program: one state set with a
// single state that test-and-clears a channel's companion event flag,
// plus a queued channel, matching the kinds of
// programs the shell commands are meant to inspect.
func demoTable() *seq.ProgramTable {
	return &seq.ProgramTable{
		Name:       "demo",
		NumEvFlags: 2,
		Channels: []seq.ChannelDesc{
			{VarName: "value", Tag: seq.Long, Count: 1, PVName: "demo:value", Monitor: true, EvFlag: 1},
			{VarName: "events", Tag: seq.Long, Count: 1, PVName: "demo:events", Monitor: true, Queued: true, QueueSize: 4},
		},
		StateSets: []seq.StateSetDesc{
			{
				Name: "watcher",
				States: []seq.StateDesc{
					{
						Name: "waiting",
						Event: func(ss *seq.StateSet) (int, bool) {
							if ss.TestAndClearEvent(1) {
								return 0, true
							}
							return 0, false
						},
					},
				},
			},
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:   "seqsh",
		Short: "Interactive shell over the go-seq runtime (spec §6 shell surface)",
	}

	root.AddCommand(
		newSeqShowCmd(),
		newSeqChanShowCmd(),
		newSeqQueueShowCmd(),
		newSeqcarCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withDemoProgram starts a fresh registry and demo program, runs fn
// against it once the program has had a moment to settle, then stops
// it. The runtime holds no persisted state across process
// invocations (spec §6), so each seqsh invocation demonstrates the
// commands against its own short-lived instance.
func withDemoProgram(fn func(reg *seq.Registry, thread string)) error {
	reg := seq.NewRegistry()
	client := loopback.New()
	p, err := seq.Start(demoTable(), "", client, reg)
	if err != nil {
		return err
	}
	defer p.Stop()

	time.Sleep(20 * time.Millisecond)
	thread := fmt.Sprintf("%s#%d", p.Name(), p.InstanceIndex())
	fn(reg, thread)
	return nil
}

func newSeqShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seqShow [thread]",
		Short: "List programs, or dump one program instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDemoProgram(func(reg *seq.Registry, thread string) {
				want := ""
				if len(args) > 0 {
					want = args[0]
				}
				if want == "" {
					fmt.Print(shell.SeqShow(reg, ""))
					return
				}
				fmt.Print(shell.SeqShow(reg, thread))
			})
		},
	}
}

func newSeqChanShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seqChanShow [pattern]",
		Short: "Enumerate a program's channels, optionally filtered by +/-/substring",
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) > 0 {
				pattern = args[0]
			}
			return withDemoProgram(func(reg *seq.Registry, thread string) {
				fmt.Print(shell.SeqChanShow(reg, thread, pattern))
			})
		},
	}
}

func newSeqQueueShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seqQueueShow",
		Short: "Dump monitor queue usage for a program's queued channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDemoProgram(func(reg *seq.Registry, thread string) {
				fmt.Print(shell.SeqQueueShow(reg, thread))
			})
		},
	}
}

func newSeqcarCmd() *cobra.Command {
	var level int
	cmd := &cobra.Command{
		Use:   "seqcar",
		Short: "Per-program connectivity report at increasing verbosity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDemoProgram(func(reg *seq.Registry, thread string) {
				fmt.Print(shell.Seqcar(reg, level))
			})
		},
	}
	cmd.Flags().IntVar(&level, "level", 0, "verbosity: 0=summary, 1=+per-channel, 2=+PV name and status")
	return cmd
}
