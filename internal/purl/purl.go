// Package purl converts canonical package references into Package URL
// identities. PURLs are the unit of identity everywhere downstream: map keys,
// dedup keys, and report keys, so construction must be deterministic.
package purl

import (
	"strings"

	packageurl "github.com/package-url/packageurl-go"

	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

// Ecosystem is a PURL type tag.
type Ecosystem string

const (
	Npm    Ecosystem = "npm"
	PyPI   Ecosystem = "pypi"
	Cargo  Ecosystem = "cargo"
	Gem    Ecosystem = "gem"
	Golang Ecosystem = "golang"
)

// splitter separates an ecosystem-specific package name into the PURL
// namespace and name components.
type splitter func(name string) (namespace, pkg string)

var splitters = map[Ecosystem]splitter{
	Npm:    splitNpm,
	PyPI:   splitPyPI,
	Cargo:  splitPlain,
	Gem:    splitPlain,
	Golang: splitGolang,
}

// Supported returns the ecosystems refs can be normalized for.
func Supported() []Ecosystem {
	ecosystems := make([]Ecosystem, 0, len(splitters))
	for eco := range splitters {
		ecosystems = append(ecosystems, eco)
	}
	return ecosystems
}

// Normalize builds the canonical PURL string for a ref in the given
// ecosystem. It returns "" when the ref is not scannable or the ecosystem is
// unknown; callers treat "" the same as a parse failure. When the ref's
// version is absent or non-exact the version segment is omitted, so the PURL
// keys on the name alone.
func Normalize(ref specifier.Ref, eco Ecosystem) string {
	split, ok := splitters[eco]
	if !ok || !ref.Scannable() {
		return ""
	}

	namespace, name := split(ref.Name)
	if name == "" {
		return ""
	}

	version := ref.Version
	if specifier.ClassifyVersion(version) != specifier.VersionExact {
		version = ""
	}

	return packageurl.NewPackageURL(string(eco), namespace, name, version, nil, "").ToString()
}

// splitNpm lowers the whole name: npm registry identifiers are lowercase and
// two case variants of one name must not yield two identities.
func splitNpm(name string) (string, string) {
	lowered := strings.ToLower(name)
	if strings.HasPrefix(lowered, "@") {
		if scope, pkg, ok := strings.Cut(lowered, "/"); ok {
			return scope, pkg
		}
		return "", ""
	}
	return "", lowered
}

// splitPlain covers registries with flat namespaces where the name is used
// as-is.
func splitPlain(name string) (string, string) {
	return "", name
}

// splitPyPI normalizes per PEP 503: case-insensitive, with runs of -, _ and .
// treated as a single hyphen.
func splitPyPI(name string) (string, string) {
	lowered := strings.ToLower(name)
	lowered = strings.ReplaceAll(lowered, "_", "-")
	lowered = strings.ReplaceAll(lowered, ".", "-")
	for strings.Contains(lowered, "--") {
		lowered = strings.ReplaceAll(lowered, "--", "-")
	}
	return "", lowered
}

func splitGolang(name string) (string, string) {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}
