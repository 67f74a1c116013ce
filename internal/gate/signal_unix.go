//go:build unix

package gate

import (
	"os"
	"os/signal"
	"syscall"
)

// forwardedSignals are relayed to the running child so job control reaches
// the tool the user thinks they are running.
var forwardedSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
}

// reraise resets the handler for sig and delivers it to this process, so the
// supervisor dies the same way the child did instead of translating the
// signal into a numeric exit code.
func reraise(sig syscall.Signal) {
	signal.Reset(sig)
	_ = syscall.Kill(syscall.Getpid(), sig)
}
