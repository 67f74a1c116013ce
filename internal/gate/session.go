package gate

import (
	"github.com/git-pkgs/gatekeeper/internal/advisory"
	"github.com/git-pkgs/gatekeeper/internal/policy"
	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

// Session binds one gate invocation: the argv destined for the real tool,
// the references extracted from it, the aggregated alerts, and the verdict.
// Sessions are created at invocation start and discarded at process exit;
// nothing here is shared between invocations, so concurrent sessions (tests
// run them in parallel) never interfere.
type Session struct {
	Tool specifier.Tool
	Argv []string

	Refs        []specifier.Ref
	Unscannable []string
	PURLs       []string

	Alerts  *advisory.AlertsMap
	Verdict policy.Verdict
}

// NewSession starts a session for one invocation of a wrapped tool.
func NewSession(tool specifier.Tool, argv []string) *Session {
	return &Session{Tool: tool, Argv: argv}
}
