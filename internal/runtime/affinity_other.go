//go:build !linux

package runtime

import (
	"runtime"

	"github.com/behrlich/go-seq/internal/logging"
)

// lockOSThreadAndApplyPriority pins the calling goroutine to its OS
// thread; priority is Linux-specific (unix.Setpriority) and is a
// silent no-op elsewhere, per spec §11 "best-effort, ignored on
// non-Linux".
func lockOSThreadAndApplyPriority(priority int, logger *logging.Logger) {
	runtime.LockOSThread()
}
