// Package gate is the decision point: it resolves the packages an invocation
// would install, consults the advisory service, evaluates policy, and either
// blocks with a report or hands control to the real package manager.
package gate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/git-pkgs/gatekeeper/internal/advisory"
	"github.com/git-pkgs/gatekeeper/internal/policy"
	"github.com/git-pkgs/gatekeeper/internal/purl"
	"github.com/git-pkgs/gatekeeper/internal/registry"
	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

// Exit codes owned by the gate, distinct from anything the wrapped tools
// use.
const (
	// ExitBlocked is returned when policy blocks the invocation.
	ExitBlocked = 87

	// ExitFatal is returned when the gate itself fails (advisory service
	// unreachable without nothrow, wrapped binary missing).
	ExitFatal = 86
)

// Options configures one gate session. The zero value plus an ecosystem is
// usable: default rules, public endpoints, inherited stdio.
type Options struct {
	Ecosystem purl.Ecosystem
	Rules     policy.RuleSet

	// Token authenticates advisory requests; empty means unauthenticated,
	// rate-limited access. Resolution order (flag > env > config) is the
	// caller's concern; the gate receives the winner.
	Token string

	AdvisoryURL string
	RegistryURL string

	BatchSize   int
	Concurrency int

	// Timeout bounds the whole fetch stage. On expiry, PURLs without
	// results count as fetch failures; the gate always reaches a verdict.
	Timeout time.Duration

	// Nothrow downgrades total advisory-service outage from a fatal error
	// to "alerts unknown", letting the configured fail-open/fail-closed
	// policy decide.
	Nothrow bool

	// ResolveTags pins absent versions and dist-tags to concrete versions
	// via the package registry before advisory lookup. Resolution failures
	// degrade to name-only lookups.
	ResolveTags bool

	// Binary overrides the executable to spawn; defaults to the tool name.
	Binary string

	// Reporter receives the structured report before the gate acts on it.
	Reporter func(*Report)

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Run executes the gate state machine for one invocation: Resolving, then
// Blocked or Proceeding, then Terminal. It returns the process exit code.
// The returned error is non-nil only for fatal gate failures; a policy block
// is a normal outcome with code ExitBlocked and a nil error.
func Run(ctx context.Context, tool specifier.Tool, argv []string, opts Options) (int, error) {
	if opts.Rules.Rules == nil {
		// Default only the category map; knobs like FailClosed set by the
		// caller must survive.
		opts.Rules.Rules = policy.DefaultRules().Rules
	}
	if opts.Ecosystem == "" {
		opts.Ecosystem = purl.Npm
	}

	sess := NewSession(tool, argv)
	if err := resolve(ctx, sess, &opts); err != nil {
		return ExitFatal, err
	}

	report := buildReport(sess)
	if opts.Reporter != nil {
		opts.Reporter(report)
	}

	if sess.Verdict.Outcome == policy.Block {
		return ExitBlocked, nil
	}

	outcome, err := runChild(ctx, &opts, childBinary(tool, &opts), argv)
	if err != nil {
		return ExitFatal, err
	}
	if outcome.signaled {
		// Re-raise so the parent observes the same termination mode the
		// tool had. The numeric fallback only matters where signals
		// cannot be re-raised.
		reraise(outcome.signal)
		return 128 + int(outcome.signal), nil
	}
	return outcome.code, nil
}

// resolve walks the Resolving stage: extract specifiers, parse, normalize,
// fetch, aggregate, evaluate. Parse and normalize failures mark tokens
// unscannable and never abort the session; only total advisory outage
// without nothrow is fatal.
func resolve(ctx context.Context, sess *Session, opts *Options) error {
	logger := opts.logger()

	for _, token := range specifier.Extract(sess.Tool, sess.Argv) {
		ref, err := specifier.Parse(token)
		if err != nil {
			logger.Debug("unparseable specifier", "token", token, "error", err)
			sess.Unscannable = append(sess.Unscannable, token)
			continue
		}
		if !ref.Scannable() {
			sess.Unscannable = append(sess.Unscannable, token)
			continue
		}
		sess.Refs = append(sess.Refs, ref)
	}

	if opts.ResolveTags && len(sess.Refs) > 0 && opts.Ecosystem == purl.Npm {
		pinTags(ctx, sess, opts)
	}

	for i, ref := range sess.Refs {
		p := purl.Normalize(ref, opts.Ecosystem)
		if p == "" {
			sess.Unscannable = append(sess.Unscannable, sess.Refs[i].Raw)
			continue
		}
		sess.PURLs = append(sess.PURLs, p)
	}

	sess.PURLs = advisory.Dedup(sess.PURLs)
	sess.Alerts = fetchAlerts(ctx, sess.PURLs, opts)

	if sess.Alerts.SessionFailed() && !opts.Nothrow {
		return fmt.Errorf("refusing to proceed without advisory data: %w", advisory.ErrUnreachable)
	}

	sess.Verdict = policy.Evaluate(sess.Alerts, opts.Rules)
	return nil
}

func fetchAlerts(ctx context.Context, purls []string, opts *Options) *advisory.AlertsMap {
	if len(purls) == 0 {
		return advisory.Aggregate(nil, closedResults())
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	client := advisory.NewClient(opts.AdvisoryURL,
		advisory.WithToken(opts.Token),
		advisory.WithLogger(opts.logger()),
	)
	defer client.Close()
	fetcher := advisory.NewFetcher(client,
		advisory.WithBatchSize(opts.BatchSize),
		advisory.WithConcurrency(opts.Concurrency),
		advisory.WithFetcherLogger(opts.logger()),
	)

	return advisory.Aggregate(purls, fetcher.Fetch(ctx, purls))
}

// pinTags resolves dist-tag and absent versions against the registry. Any
// failure leaves the ref as-is; resolution is best-effort and never blocks
// on its own.
func pinTags(ctx context.Context, sess *Session, opts *Options) {
	client := registry.NewClient(opts.RegistryURL)
	for i, ref := range sess.Refs {
		resolved, err := client.Resolve(ctx, ref)
		if err != nil {
			opts.logger().Debug("tag resolution failed", "name", ref.Name, "error", err)
			continue
		}
		sess.Refs[i] = resolved
	}
}

func childBinary(tool specifier.Tool, opts *Options) string {
	if opts.Binary != "" {
		return opts.Binary
	}
	return string(tool)
}

func closedResults() <-chan advisory.Result {
	ch := make(chan advisory.Result)
	close(ch)
	return ch
}
