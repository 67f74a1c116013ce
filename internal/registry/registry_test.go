package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

func packumentServer(t *testing.T, tags map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.npm.install-v1+json" {
			t.Errorf("Accept = %q, want abbreviated packument media type", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":      "react",
			"dist-tags": tags,
		})
	}))
}

func TestResolveTag(t *testing.T) {
	server := packumentServer(t, map[string]string{"latest": "18.3.1", "beta": "19.0.0-beta-4"})
	defer server.Close()

	c := NewClient(server.URL)

	version, err := c.ResolveTag(context.Background(), "react", "latest")
	if err != nil {
		t.Fatalf("ResolveTag failed: %v", err)
	}
	if version != "18.3.1" {
		t.Errorf("version = %q, want %q", version, "18.3.1")
	}

	version, err = c.ResolveTag(context.Background(), "react", "beta")
	if err != nil {
		t.Fatalf("ResolveTag failed: %v", err)
	}
	if version != "19.0.0-beta-4" {
		t.Errorf("version = %q, want %q", version, "19.0.0-beta-4")
	}
}

func TestResolveTagMissing(t *testing.T) {
	server := packumentServer(t, map[string]string{"latest": "18.3.1"})
	defer server.Close()

	_, err := NewClient(server.URL).ResolveTag(context.Background(), "react", "canary")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("ResolveTag = %v, want *NotFoundError", err)
	}
	if nf.Tag != "canary" {
		t.Errorf("Tag = %q, want %q", nf.Tag, "canary")
	}
}

func TestResolveTagPackageNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).ResolveTag(context.Background(), "no-such-pkg-ever", "latest")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("ResolveTag = %v, want *NotFoundError", err)
	}
}

func TestResolve(t *testing.T) {
	server := packumentServer(t, map[string]string{"latest": "18.3.1", "next": "19.0.0-rc-1"})
	defer server.Close()

	c := NewClient(server.URL)

	tests := []struct {
		name        string
		ref         specifier.Ref
		wantVersion string
	}{
		{"absent version resolves latest", specifier.Ref{Name: "react", Kind: specifier.Registry}, "18.3.1"},
		{"dist-tag resolves", specifier.Ref{Name: "react", Version: "next", Kind: specifier.Registry}, "19.0.0-rc-1"},
		{"exact version untouched", specifier.Ref{Name: "react", Version: "17.0.2", Kind: specifier.Registry}, "17.0.2"},
		{"range untouched", specifier.Ref{Name: "react", Version: "^18.0.0", Kind: specifier.Registry}, "^18.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := c.Resolve(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if resolved.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", resolved.Version, tt.wantVersion)
			}
		})
	}
}
