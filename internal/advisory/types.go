// Package advisory provides the batch alert client for the advisory service:
// streaming bounded-size PURL batches with retry, circuit breaking, and
// per-PURL partial-failure tolerance.
package advisory

import (
	"encoding/json"
	"strings"
)

// Category identifies a class of advisory finding. The set is owned by the
// service; unknown categories still round-trip through policy evaluation.
type Category string

const (
	Malware         Category = "malware"
	PossibleMalware Category = "possibleMalware"
	GPTMalware      Category = "gptMalware"
	CriticalVuln    Category = "criticalVuln"
	HighVuln        Category = "highVuln"
	MediumVuln      Category = "mediumVuln"
	LowVuln         Category = "lowVuln"
	InstallScripts  Category = "installScripts"
	ObfuscatedCode  Category = "obfuscatedCode"
	NetworkAccess   Category = "networkAccess"
	ShellAccess     Category = "shellAccess"
	Unmaintained    Category = "unmaintained"

	// FetchUnknown is synthesized locally, never by the service: under a
	// fail-closed policy it stands in for a PURL whose alerts could not be
	// fetched.
	FetchUnknown Category = "fetchUnknown"
)

var knownCategories = []Category{
	Malware, PossibleMalware, GPTMalware,
	CriticalVuln, HighVuln, MediumVuln, LowVuln,
	InstallScripts, ObfuscatedCode, NetworkAccess, ShellAccess,
	Unmaintained, FetchUnknown,
}

// CategoryFromString maps a string onto a known category ignoring case
// (configuration sources lowercase keys); unknown strings pass through
// unchanged so future service categories can still be configured.
func CategoryFromString(s string) Category {
	for _, c := range knownCategories {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return Category(s)
}

// Severity grades a single alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is a single advisory finding about a package version. Read-only once
// received; Detail is opaque service metadata passed through to reporting.
type Alert struct {
	Category Category        `json:"category"`
	Severity Severity        `json:"severity"`
	PURL     string          `json:"purl"`
	Summary  string          `json:"summary,omitempty"`
	Detail   json.RawMessage `json:"detail,omitempty"`
}

// Result is one per-PURL outcome from a fetch stream: either an alert list
// (possibly empty) or a fetch error. A non-nil Err never aborts sibling
// fetches.
type Result struct {
	PURL   string
	Alerts []Alert
	Err    error
}
