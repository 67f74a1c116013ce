package purl

import (
	"testing"

	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		ref  specifier.Ref
		eco  Ecosystem
		want string
	}{
		{
			"bare npm name",
			specifier.Ref{Name: "lodash", Kind: specifier.Registry},
			Npm,
			"pkg:npm/lodash",
		},
		{
			"npm name and version",
			specifier.Ref{Name: "lodash", Version: "4.17.21", Kind: specifier.Registry},
			Npm,
			"pkg:npm/lodash@4.17.21",
		},
		{
			"scoped npm package",
			specifier.Ref{Name: "@types/node", Version: "20.0.0", Kind: specifier.Registry},
			Npm,
			"pkg:npm/%40types/node@20.0.0",
		},
		{
			"range drops to name-only identity",
			specifier.Ref{Name: "lodash", Version: "^4.0.0", Kind: specifier.Registry},
			Npm,
			"pkg:npm/lodash",
		},
		{
			"dist-tag drops to name-only identity",
			specifier.Ref{Name: "react", Version: "latest", Kind: specifier.Registry},
			Npm,
			"pkg:npm/react",
		},
		{
			"pypi pep 503 normalization",
			specifier.Ref{Name: "Django_Rest.Framework", Version: "3.15.0", Kind: specifier.Registry},
			PyPI,
			"pkg:pypi/django-rest-framework@3.15.0",
		},
		{
			"cargo",
			specifier.Ref{Name: "serde", Version: "1.0.0", Kind: specifier.Registry},
			Cargo,
			"pkg:cargo/serde@1.0.0",
		},
		{
			"golang module path",
			specifier.Ref{Name: "github.com/gorilla/mux", Version: "v1.8.0", Kind: specifier.Registry},
			Golang,
			"pkg:golang/github.com/gorilla/mux@v1.8.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.ref, tt.eco); got != tt.want {
				t.Errorf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeUnscannable(t *testing.T) {
	tests := []struct {
		name string
		ref  specifier.Ref
		eco  Ecosystem
	}{
		{"git ref", specifier.Ref{Kind: specifier.Git}, Npm},
		{"file ref", specifier.Ref{Kind: specifier.File}, Npm},
		{"alias ref", specifier.Ref{Name: "my-lodash", Kind: specifier.Alias}, Npm},
		{"empty name", specifier.Ref{Kind: specifier.Registry}, Npm},
		{"unknown ecosystem", specifier.Ref{Name: "lodash", Kind: specifier.Registry}, Ecosystem("brew")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.ref, tt.eco); got != "" {
				t.Errorf("Normalize = %q, want empty", got)
			}
		})
	}
}

// Two semantically identical refs must normalize to byte-identical strings:
// PURLs are used as map keys downstream.
func TestNormalizeDeterministic(t *testing.T) {
	pairs := [][2]specifier.Ref{
		{
			{Name: "@Types/Node", Version: "20.0.0", Kind: specifier.Registry},
			{Name: "@Types/Node", Version: "20.0.0", Kind: specifier.Registry},
		},
		{
			{Name: "lodash", Version: "*", Kind: specifier.Registry},
			{Name: "lodash", Kind: specifier.Registry},
		},
	}

	for _, pair := range pairs {
		a := Normalize(pair[0], Npm)
		b := Normalize(pair[1], Npm)
		if a != b {
			t.Errorf("Normalize not deterministic: %q != %q", a, b)
		}
		if a == "" {
			t.Errorf("Normalize returned empty for scannable ref %+v", pair[0])
		}
	}
}
