package gate

import (
	"sort"

	"github.com/git-pkgs/gatekeeper/internal/policy"
)

// Report is the structured result of one gate evaluation, handed to the
// caller's reporter before any decision takes effect. Rendering (text, JSON,
// markdown) is the caller's concern; the gate never formats output itself.
type Report struct {
	Outcome    policy.Outcome   `json:"outcome"`
	Offenders  []policy.Finding `json:"offenders,omitempty"`
	Advisories []policy.Finding `json:"advisories,omitempty"`

	// Unscannable lists raw specifier tokens that were excluded from
	// advisory lookup (git/file/alias forms, parse failures).
	Unscannable []string `json:"unscannable,omitempty"`

	// Unknown lists PURLs whose alert fetch failed; under the fail-open
	// default they carried no weight in the outcome.
	Unknown []string `json:"unknown,omitempty"`
}

func buildReport(sess *Session) *Report {
	r := &Report{
		Outcome:     sess.Verdict.Outcome,
		Offenders:   sess.Verdict.Offenders,
		Advisories:  sess.Verdict.Advisories,
		Unscannable: sess.Unscannable,
	}
	if sess.Alerts != nil {
		for purl := range sess.Alerts.Unknown {
			r.Unknown = append(r.Unknown, purl)
		}
		sort.Strings(r.Unknown)
	}
	return r
}
