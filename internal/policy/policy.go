// Package policy evaluates aggregated advisory alerts against a configured
// rule set and produces the gate's verdict.
package policy

import (
	"sort"

	"github.com/git-pkgs/gatekeeper/internal/advisory"
)

// Action is the configured treatment for an alert category.
type Action string

const (
	// Ignore suppresses the category entirely.
	Ignore Action = "ignore"

	// Warn reports the category without affecting the outcome.
	Warn Action = "warn"

	// Error makes the category blocking.
	Error Action = "error"
)

// RuleSet maps alert categories to actions. Categories absent from Rules are
// advisory-only, same as Warn. FailClosed additionally turns PURLs with
// unknown fetch status into offenders; it is off by default, so indeterminate
// results permit the operation.
type RuleSet struct {
	Rules      map[advisory.Category]Action
	FailClosed bool
}

// DefaultRules blocks confirmed and suspected malware and surfaces serious
// vulnerabilities as warnings.
func DefaultRules() RuleSet {
	return RuleSet{
		Rules: map[advisory.Category]Action{
			advisory.Malware:         Error,
			advisory.GPTMalware:      Error,
			advisory.PossibleMalware: Warn,
			advisory.CriticalVuln:    Warn,
			advisory.HighVuln:        Warn,
			advisory.ObfuscatedCode:  Warn,
		},
	}
}

// Outcome is the gate's overall decision.
type Outcome string

const (
	Allow Outcome = "allow"
	Warns Outcome = "warn"
	Block Outcome = "block"
)

// Finding pairs a PURL with one alert and the action its category resolved
// to.
type Finding struct {
	PURL   string
	Alert  advisory.Alert
	Action Action
}

// Verdict is the result of one evaluation: the outcome plus the findings
// behind it. A Block verdict is an expected result, not an error.
type Verdict struct {
	Outcome    Outcome
	Offenders  []Finding
	Advisories []Finding
}

// Evaluate computes the verdict for an alert map under a rule set. It is a
// pure function of its inputs: fetch ordering, batch boundaries, and
// concurrency never influence the result, and findings come out sorted by
// PURL then category. Unknown-fetch-status PURLs carry no blocking evidence
// under the fail-open default; with FailClosed set they block under the
// synthetic fetchUnknown category.
func Evaluate(alerts *advisory.AlertsMap, rules RuleSet) Verdict {
	v := Verdict{Outcome: Allow}

	for purl, list := range alerts.Alerts {
		for _, alert := range list {
			action, configured := rules.Rules[alert.Category]
			if !configured {
				action = Warn
			}
			f := Finding{PURL: purl, Alert: alert, Action: action}
			switch action {
			case Error:
				v.Offenders = append(v.Offenders, f)
			case Warn:
				v.Advisories = append(v.Advisories, f)
			}
		}
	}

	if rules.FailClosed {
		for purl := range alerts.Unknown {
			v.Offenders = append(v.Offenders, Finding{
				PURL:   purl,
				Alert:  advisory.Alert{Category: advisory.FetchUnknown, PURL: purl},
				Action: Error,
			})
		}
	}

	sortFindings(v.Offenders)
	sortFindings(v.Advisories)

	switch {
	case len(v.Offenders) > 0:
		v.Outcome = Block
	case len(v.Advisories) > 0:
		v.Outcome = Warns
	}
	return v
}

func sortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].PURL != findings[j].PURL {
			return findings[i].PURL < findings[j].PURL
		}
		return findings[i].Alert.Category < findings[j].Alert.Category
	})
}
