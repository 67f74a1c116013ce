// Package gatekeeper screens package manager invocations against an
// advisory service before the real tool is allowed to run.
//
// The package wraps npm, npx, pnpm and yarn. Package specifiers are
// extracted from the command line, normalized to Package URLs, checked
// against the advisory service in batches, and evaluated against a
// policy rule set. Installs that trip a blocking rule never reach the
// wrapped tool; everything else runs with stdio, exit codes and
// signals passed through untouched.
//
// Basic usage:
//
//	import (
//		"context"
//		"os"
//
//		"github.com/git-pkgs/gatekeeper"
//	)
//
//	code, err := gatekeeper.Run(context.Background(), gatekeeper.ToolNpm,
//		[]string{"install", "lodash"}, gatekeeper.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.Exit(code)
package gatekeeper

import (
	"context"

	"github.com/git-pkgs/gatekeeper/internal/advisory"
	"github.com/git-pkgs/gatekeeper/internal/gate"
	"github.com/git-pkgs/gatekeeper/internal/policy"
	"github.com/git-pkgs/gatekeeper/internal/purl"
	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

// Re-export types from internal/gate
type (
	// Options configures a gate session.
	Options = gate.Options

	// Report summarizes what a session decided and why.
	Report = gate.Report

	// SpawnError reports a failure to launch the wrapped tool.
	SpawnError = gate.SpawnError
)

// Re-export types from internal/policy
type (
	// RuleSet maps advisory categories to actions.
	RuleSet = policy.RuleSet

	// Action is what a rule does when its category matches.
	Action = policy.Action

	// Verdict is the result of evaluating alerts against a rule set.
	Verdict = policy.Verdict

	// Finding pairs an alert with the action its rule selected.
	Finding = policy.Finding
)

// Re-export types from internal/specifier
type (
	// Tool identifies which package manager is being wrapped.
	Tool = specifier.Tool

	// Ref is a parsed package specifier.
	Ref = specifier.Ref
)

// Re-export constants
const (
	ToolNpm  = specifier.Npm
	ToolNpx  = specifier.Npx
	ToolPnpm = specifier.Pnpm
	ToolYarn = specifier.Yarn

	ActionIgnore = policy.Ignore
	ActionWarn   = policy.Warn
	ActionError  = policy.Error

	OutcomeAllow = policy.Allow
	OutcomeWarns = policy.Warns
	OutcomeBlock = policy.Block

	// ExitBlocked is returned when policy blocks the invocation.
	ExitBlocked = gate.ExitBlocked

	// ExitFatal is returned when the gate itself fails.
	ExitFatal = gate.ExitFatal
)

// Re-export errors
var (
	ErrAuthRequired = advisory.ErrAuthRequired
	ErrRateLimited  = advisory.ErrRateLimited
	ErrUnreachable  = advisory.ErrUnreachable
)

// Run gates a single invocation of the wrapped tool and returns the
// process exit code. See gate.Run for the full contract.
func Run(ctx context.Context, tool Tool, argv []string, opts Options) (int, error) {
	return gate.Run(ctx, tool, argv, opts)
}

// DefaultRules returns the rule set used when no configuration
// overrides are present.
func DefaultRules() RuleSet {
	return policy.DefaultRules()
}

// ParseSpecifier parses a single package specifier token, for example
// "@types/node@20.0.0".
func ParseSpecifier(token string) (specifier.Ref, error) {
	return specifier.Parse(token)
}

// NormalizePURL converts a parsed specifier to its canonical Package
// URL, or "" when the specifier has no registry identity.
func NormalizePURL(ref specifier.Ref, ecosystem purl.Ecosystem) string {
	return purl.Normalize(ref, ecosystem)
}

// SupportedEcosystems returns the ecosystems Normalize understands.
func SupportedEcosystems() []purl.Ecosystem {
	return purl.Supported()
}
