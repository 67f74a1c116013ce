//go:build windows

package gate

import (
	"os"
	"syscall"
)

var forwardedSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// reraise is a no-op on Windows; the caller falls back to the conventional
// 128+signal exit code.
func reraise(sig syscall.Signal) {}
