package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// SpawnError means the wrapped binary could not be located or started. The
// session must never silently succeed without running the intended tool.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("cannot run %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// childOutcome describes how the wrapped tool terminated.
type childOutcome struct {
	code     int
	signaled bool
	signal   syscall.Signal
}

// runChild spawns the real package-manager binary with the forwarded argv,
// all three standard streams connected transparently, and waits for it.
// Termination signals received while the child runs are forwarded to it so
// no orphan survives the supervisor. The child's exit code or terminating
// signal is returned untranslated.
func runChild(ctx context.Context, opts *Options, binary string, argv []string) (childOutcome, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return childOutcome{}, &SpawnError{Binary: binary, Err: err}
	}

	cmd := exec.Command(path, argv...)
	cmd.Stdin = stdinOr(opts.Stdin)
	cmd.Stdout = stdoutOr(opts.Stdout)
	cmd.Stderr = stderrOr(opts.Stderr)

	if err := cmd.Start(); err != nil {
		return childOutcome{}, &SpawnError{Binary: binary, Err: err}
	}

	sigc := make(chan os.Signal, 16)
	signal.Notify(sigc, forwardedSignals...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigc:
				_ = cmd.Process.Signal(sig)
			case <-ctx.Done():
				_ = cmd.Process.Signal(syscall.SIGTERM)
				return
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	signal.Stop(sigc)

	if waitErr == nil {
		return childOutcome{code: 0}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return childOutcome{signaled: true, signal: ws.Signal()}, nil
		}
		return childOutcome{code: exitErr.ExitCode()}, nil
	}

	return childOutcome{}, &SpawnError{Binary: binary, Err: waitErr}
}

func stdinOr(r io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return os.Stdin
}

func stdoutOr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}

func stderrOr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stderr
}
