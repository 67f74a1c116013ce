package main

import (
	"fmt"
	"io"

	"github.com/git-pkgs/gatekeeper/internal/gate"
	"github.com/git-pkgs/gatekeeper/internal/policy"
)

// renderReport writes the human-readable gate report to the error stream.
// Structured renderers (JSON, markdown) live outside the gate; this is the
// minimal built-in one.
func renderReport(w io.Writer, r *gate.Report) {
	switch r.Outcome {
	case policy.Block:
		fmt.Fprintln(w, "gatekeeper: blocked by policy")
		writeFindings(w, r.Offenders)
		writeAdvisories(w, r.Advisories)
		fmt.Fprintln(w, "\nTo proceed anyway, adjust the rules in your gatekeeper config.")
	case policy.Warns:
		fmt.Fprintln(w, "gatekeeper: advisories found (not blocking)")
		writeAdvisories(w, r.Advisories)
	default:
		return
	}

	if len(r.Unscannable) > 0 {
		fmt.Fprintf(w, "\nnot checked (unscannable): %d specifier(s)\n", len(r.Unscannable))
		for _, token := range r.Unscannable {
			fmt.Fprintf(w, "  %s\n", token)
		}
	}
	if len(r.Unknown) > 0 {
		fmt.Fprintf(w, "\nadvisory status unknown: %d package(s)\n", len(r.Unknown))
		for _, purl := range r.Unknown {
			fmt.Fprintf(w, "  %s\n", purl)
		}
	}
}

func writeFindings(w io.Writer, findings []policy.Finding) {
	for _, f := range findings {
		line := fmt.Sprintf("  %s: %s", f.PURL, f.Alert.Category)
		if f.Alert.Severity != "" {
			line += fmt.Sprintf(" (%s)", f.Alert.Severity)
		}
		if f.Alert.Summary != "" {
			line += " - " + f.Alert.Summary
		}
		fmt.Fprintln(w, line)
	}
}

func writeAdvisories(w io.Writer, advisories []policy.Finding) {
	if len(advisories) == 0 {
		return
	}
	fmt.Fprintln(w, "advisories:")
	writeFindings(w, advisories)
}
