// Package registry resolves loose npm version constraints (absent versions
// and dist-tags) to concrete versions via the registry packument, so advisory
// lookups can key on real versions instead of names alone.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// NotFoundError is returned when the registry has no such package or tag.
type NotFoundError struct {
	Name string
	Tag  string
}

func (e *NotFoundError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("npm: package %s has no dist-tag %s", e.Name, e.Tag)
	}
	return fmt.Sprintf("npm: package %s not found", e.Name)
}

// Client fetches abbreviated packuments from an npm-style registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient creates a registry client. If baseURL is empty, DefaultURL is
// used.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "gatekeeper/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// packument is the abbreviated metadata document; the install-v1 media type
// keeps the response small.
type packument struct {
	Name     string            `json:"name"`
	DistTags map[string]string `json:"dist-tags"`
}

// ResolveTag resolves a dist-tag (or "latest" when tag is empty) to the
// concrete version it currently points at.
func (c *Client) ResolveTag(ctx context.Context, name, tag string) (string, error) {
	if tag == "" {
		tag = "latest"
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.npm.install-v1+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching packument: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return "", &NotFoundError{Name: name}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var doc packument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decoding packument: %w", err)
	}

	version, ok := doc.DistTags[tag]
	if !ok || version == "" {
		return "", &NotFoundError{Name: name, Tag: tag}
	}
	return version, nil
}

// Resolve pins a ref to a concrete version when its version is absent or a
// dist-tag. Exact versions and ranges pass through unchanged; ranges need
// the package manager's own resolution and are left as name-only lookups.
func (c *Client) Resolve(ctx context.Context, ref specifier.Ref) (specifier.Ref, error) {
	switch specifier.ClassifyVersion(ref.Version) {
	case specifier.VersionAny:
		version, err := c.ResolveTag(ctx, ref.Name, "latest")
		if err != nil {
			return ref, err
		}
		ref.Version = version
	case specifier.VersionTag:
		version, err := c.ResolveTag(ctx, ref.Name, ref.Version)
		if err != nil {
			return ref, err
		}
		ref.Version = version
	}
	return ref, nil
}
