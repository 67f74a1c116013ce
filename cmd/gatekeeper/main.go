// Command gatekeeper wraps npm, npx, pnpm, and yarn invocations behind an
// advisory policy gate: packages the invocation would install are checked
// against the advisory service before the real tool is allowed to run.
package main

import (
	"fmt"
	"os"

	"github.com/git-pkgs/gatekeeper/internal/gate"
)

func main() {
	c := newCLI()
	if err := c.rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gatekeeper: %v\n", err)
		if c.exitCode == 0 {
			c.exitCode = gate.ExitFatal
		}
	}
	os.Exit(c.exitCode)
}
