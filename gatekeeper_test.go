package gatekeeper

import "testing"

func TestParseSpecifierAndNormalize(t *testing.T) {
	ref, err := ParseSpecifier("@types/node@20.0.0")
	if err != nil {
		t.Fatalf("ParseSpecifier: %v", err)
	}
	got := NormalizePURL(ref, "npm")
	want := "pkg:npm/%40types/node@20.0.0"
	if got != want {
		t.Errorf("NormalizePURL = %q, want %q", got, want)
	}
}

func TestDefaultRulesBlockMalware(t *testing.T) {
	rules := DefaultRules()
	if rules.Rules["malware"] != ActionError {
		t.Errorf("malware action = %q, want %q", rules.Rules["malware"], ActionError)
	}
	if rules.Rules["mediumVuln"] == ActionError {
		t.Error("mediumVuln should not block by default")
	}
}

func TestSupportedEcosystems(t *testing.T) {
	found := false
	for _, eco := range SupportedEcosystems() {
		if eco == "npm" {
			found = true
		}
	}
	if !found {
		t.Error("npm missing from supported ecosystems")
	}
}
