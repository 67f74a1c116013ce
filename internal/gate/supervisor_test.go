//go:build unix

package gate

import (
	"context"
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
)

func quietOpts() *Options {
	return &Options{Stdin: strings.NewReader(""), Stdout: io.Discard, Stderr: io.Discard}
}

func TestRunChildExitCodePropagation(t *testing.T) {
	outcome, err := runChild(context.Background(), quietOpts(), "sh", []string{"-c", "exit 3"})
	if err != nil {
		t.Fatalf("runChild failed: %v", err)
	}
	if outcome.signaled {
		t.Fatalf("outcome.signaled = true, want false")
	}
	if outcome.code != 3 {
		t.Errorf("code = %d, want 3", outcome.code)
	}
}

func TestRunChildSuccess(t *testing.T) {
	outcome, err := runChild(context.Background(), quietOpts(), "sh", []string{"-c", "exit 0"})
	if err != nil {
		t.Fatalf("runChild failed: %v", err)
	}
	if outcome.code != 0 || outcome.signaled {
		t.Errorf("outcome = %+v, want clean zero exit", outcome)
	}
}

func TestRunChildSignalTermination(t *testing.T) {
	outcome, err := runChild(context.Background(), quietOpts(), "sh", []string{"-c", "kill -TERM $$"})
	if err != nil {
		t.Fatalf("runChild failed: %v", err)
	}
	if !outcome.signaled {
		t.Fatalf("outcome.signaled = false, want true")
	}
	if outcome.signal != syscall.SIGTERM {
		t.Errorf("signal = %v, want SIGTERM", outcome.signal)
	}
}

func TestRunChildStdioForwarding(t *testing.T) {
	var stdout, stderr strings.Builder
	opts := &Options{
		Stdin:  strings.NewReader("ping\n"),
		Stdout: &stdout,
		Stderr: &stderr,
	}

	outcome, err := runChild(context.Background(), opts, "sh", []string{"-c", "read line; echo \"got $line\"; echo oops >&2"})
	if err != nil {
		t.Fatalf("runChild failed: %v", err)
	}
	if outcome.code != 0 {
		t.Fatalf("code = %d, want 0", outcome.code)
	}
	if got := stdout.String(); got != "got ping\n" {
		t.Errorf("stdout = %q, want %q", got, "got ping\n")
	}
	if got := stderr.String(); got != "oops\n" {
		t.Errorf("stderr = %q, want %q", got, "oops\n")
	}
}

func TestRunChildSpawnFailure(t *testing.T) {
	_, err := runChild(context.Background(), quietOpts(), "gatekeeper-no-such-binary", nil)
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("runChild = %v, want *SpawnError", err)
	}
}

func TestRunChildContextCancelKillsChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		cancel()
	}()

	outcome, err := runChild(ctx, quietOpts(), "sh", []string{"-c", "sleep 30"})
	if err != nil {
		t.Fatalf("runChild failed: %v", err)
	}
	if !outcome.signaled {
		t.Fatalf("outcome.signaled = false, want child terminated by forwarded signal")
	}
	if outcome.signal != syscall.SIGTERM {
		t.Errorf("signal = %v, want SIGTERM", outcome.signal)
	}
}
