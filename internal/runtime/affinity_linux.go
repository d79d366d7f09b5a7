//go:build linux

package runtime

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-seq/internal/logging"
)

// lockOSThreadAndApplyPriority pins the calling goroutine to its OS
// thread for the lifetime of the state set, matching the teacher's
// ioLoop pattern (internal/queue/runner.go), then best-effort applies
// the program's "priority" macro via unix.Setpriority. Errors are
// logged and otherwise ignored — thread priority is an optimization,
// not a correctness requirement (spec §6 priority option).
func lockOSThreadAndApplyPriority(priority int, logger *logging.Logger) {
	runtime.LockOSThread()

	if priority == 0 {
		return
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, priority); err != nil {
		logger.Debug("setpriority best-effort failed", "err", err)
	}
}
