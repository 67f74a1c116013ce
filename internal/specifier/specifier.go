// Package specifier parses raw package tokens, as typed on a command line or
// found in a manifest, into canonical name/version references.
package specifier

import (
	"fmt"
	"strings"
)

// Kind classifies how a specifier addresses a package.
type Kind string

const (
	// Registry specifiers name a package in a registry, optionally pinned
	// to a version, range, or dist-tag. Only these can be scanned.
	Registry Kind = "registry"

	// Git specifiers point at a git repository.
	Git Kind = "git"

	// File specifiers point at a local directory or tarball.
	File Kind = "file"

	// Remote specifiers point at a tarball URL.
	Remote Kind = "remote"

	// Alias specifiers install one package under another name
	// (name@npm:real@range).
	Alias Kind = "alias"
)

// Ref is a canonical package reference produced from one specifier token.
type Ref struct {
	Name    string
	Version string // empty means any version
	Kind    Kind
	Raw     string
}

// Scannable reports whether the ref identifies a registry package that can
// be looked up in an advisory service.
func (r Ref) Scannable() bool {
	return r.Kind == Registry && r.Name != ""
}

// ParseError describes a specifier token that could not be parsed.
// It is a recoverable condition: the gate treats the token as unscannable.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid package specifier %q: %s", e.Token, e.Reason)
}

// Parse converts a raw specifier token into a Ref.
//
// Registry forms: "lodash", "lodash@4.17.21", "@types/node",
// "@types/node@^20.0.0", "react@latest". Git URLs, local paths, tarball URLs
// and aliases are recognized and classified but carry no registry identity.
// A version of "*" is normalized to the empty version.
func Parse(token string) (Ref, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Ref{}, &ParseError{Token: token, Reason: "empty specifier"}
	}

	if kind, ok := nonRegistryKind(trimmed); ok {
		return Ref{Kind: kind, Raw: token}, nil
	}

	name, version, err := splitNameVersion(trimmed)
	if err != nil {
		return Ref{}, err
	}

	if strings.HasPrefix(version, "npm:") {
		// Alias: the installed name is local, the registry identity is the
		// target. The target could be parsed recursively, but the resolved
		// package is whatever the alias points at, so the whole token is
		// excluded from lookup.
		return Ref{Name: name, Kind: Alias, Raw: token}, nil
	}

	if err := validateName(trimmed, name); err != nil {
		return Ref{}, err
	}

	if version == "*" || version == "x" {
		version = ""
	}

	return Ref{Name: name, Version: version, Kind: Registry, Raw: token}, nil
}

var gitPrefixes = []string{
	"git://", "git+ssh://", "git+https://", "git+http://", "git+file://",
	"github:", "gitlab:", "bitbucket:", "gist:",
}

var filePrefixes = []string{
	"file:", "./", "../", "/", "~/",
}

func nonRegistryKind(token string) (Kind, bool) {
	for _, p := range gitPrefixes {
		if strings.HasPrefix(token, p) {
			return Git, true
		}
	}
	if strings.HasSuffix(token, ".git") {
		return Git, true
	}
	for _, p := range filePrefixes {
		if strings.HasPrefix(token, p) {
			return File, true
		}
	}
	if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
		return Remote, true
	}
	return "", false
}

// splitNameVersion separates the name from the version delimiter. For scoped
// packages the leading @ is a scope marker, never a version delimiter; only
// an @ after the scope/name slash counts.
func splitNameVersion(token string) (name, version string, err error) {
	if strings.HasPrefix(token, "@") {
		slash := strings.Index(token, "/")
		if slash < 0 {
			return "", "", &ParseError{Token: token, Reason: "scoped name missing /"}
		}
		if at := strings.Index(token[slash:], "@"); at >= 0 {
			cut := slash + at
			return token[:cut], token[cut+1:], checkVersion(token, token[cut+1:])
		}
		return token, "", nil
	}

	if at := strings.Index(token, "@"); at >= 0 {
		return token[:at], token[at+1:], checkVersion(token, token[at+1:])
	}
	return token, "", nil
}

func checkVersion(token, version string) error {
	if version == "" {
		return &ParseError{Token: token, Reason: "trailing @ with no version"}
	}
	return nil
}

func validateName(token, name string) error {
	if name == "" {
		return &ParseError{Token: token, Reason: "empty package name"}
	}
	if strings.ContainsAny(name, " \t\n") {
		return &ParseError{Token: token, Reason: "whitespace in package name"}
	}
	if strings.HasPrefix(name, "@") {
		if strings.Count(name, "/") != 1 {
			return &ParseError{Token: token, Reason: "malformed scoped name"}
		}
	} else if strings.Contains(name, "/") {
		return &ParseError{Token: token, Reason: "unscoped name contains /"}
	}
	return nil
}

// VersionKind classifies a parsed version string.
type VersionKind string

const (
	VersionAny   VersionKind = "any"   // no constraint
	VersionExact VersionKind = "exact" // 4.17.21
	VersionRange VersionKind = "range" // ^4.0.0, >=1.2.3, 1.x
	VersionTag   VersionKind = "tag"   // latest, beta, next
)

// ClassifyVersion reports how a version string constrains resolution.
// Dist-tags and absent versions need registry resolution before an exact
// identity exists.
func ClassifyVersion(v string) VersionKind {
	if v == "" {
		return VersionAny
	}
	if strings.ContainsAny(v, "^~><= |") {
		return VersionRange
	}
	if strings.ContainsAny(v, "*xX") && !strings.ContainsAny(v, "abcdefghijklmnopqrstuvwyz") {
		return VersionRange
	}
	// Exact versions start with a digit (optionally prefixed with v).
	rest := strings.TrimPrefix(v, "v")
	if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
		return VersionExact
	}
	return VersionTag
}
