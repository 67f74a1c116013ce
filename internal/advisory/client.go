package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"
)

// DefaultURL is the public advisory service endpoint.
const DefaultURL = "https://advisory.git-pkgs.dev"

const batchPath = "/v1/purl/alerts"

var (
	// ErrAuthRequired means the service rejected the request for lack of
	// credentials for the requested ecosystem.
	ErrAuthRequired = errors.New("advisory service requires authentication")

	// ErrRateLimited is returned after retries when the service keeps
	// responding 429.
	ErrRateLimited = errors.New("rate limited by advisory service")

	// ErrUnreachable covers transport failures and 5xx responses; a whole
	// session of these is the signal for total outage.
	ErrUnreachable = errors.New("advisory service unreachable")

	// ErrMissingResult marks a requested PURL the service response never
	// mentioned.
	ErrMissingResult = errors.New("no result returned for package")
)

// HTTPError represents an unexpected advisory service response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// ServiceError is a per-PURL error reported inside an otherwise successful
// batch response.
type ServiceError struct {
	PURL   string
	Reason string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("advisory lookup failed for %s: %s", e.PURL, e.Reason)
}

// Row is one line of a batch response.
type Row struct {
	PURL   string  `json:"purl"`
	Alerts []Alert `json:"alerts"`
	Error  string  `json:"error,omitempty"`
}

// Client queries the advisory service. The auth token is read-only for the
// client's lifetime; batch requests share it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	maxRetries uint64
	baseDelay  time.Duration
	breaker    *circuit.Breaker
	logger     *slog.Logger

	stopRefresh chan struct{}
	closeOnce   sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithToken sets the API token. An empty token means unauthenticated,
// rate-limited access; the client still issues requests.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithMaxRetries sets the maximum retry attempts per batch.
func WithMaxRetries(n uint64) Option {
	return func(cl *Client) {
		cl.maxRetries = n
	}
}

// WithBaseDelay sets the initial delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(cl *Client) {
		cl.baseDelay = d
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client for the given base URL. If baseURL is empty,
// DefaultURL is used.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}

	// DNS cache with 5 minute refresh interval; Close stops the refresher.
	resolver := &dnscache.Resolver{}
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-stop:
				return
			}
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	breakerBackoff := backoff.NewExponentialBackOff()
	breakerBackoff.InitialInterval = 30 * time.Second
	breakerBackoff.MaxInterval = 5 * time.Minute
	breakerBackoff.Multiplier = 2.0
	breakerBackoff.Reset()

	c := &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		baseURL:    baseURL,
		userAgent:  "gatekeeper/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    breakerBackoff,
			ShouldTrip: circuit.ThresholdTripFunc(5),
		}),
		logger:      slog.Default(),
		stopRefresh: stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close stops the background DNS refresher. The client stays usable for
// queries afterwards; Close only matters for callers that create clients per
// session and would otherwise accumulate refresh goroutines.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stopRefresh)
	})
}

// QueryBatch submits one bounded batch of PURLs and returns the per-PURL
// rows. Rate-limit and server errors are retried with exponential backoff;
// auth and client errors are not. Repeated failure trips the circuit breaker
// so later batches fail fast instead of piling onto a dead service.
func (c *Client) QueryBatch(ctx context.Context, purls []string) ([]Row, error) {
	if !c.breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open: %w", ErrUnreachable)
	}

	var rows []Row
	operation := func() error {
		var err error
		rows, err = c.doQuery(ctx, purls)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnreachable) {
			c.logger.Debug("retrying advisory batch", "purls", len(purls), "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay

	err := c.breaker.Call(func() error {
		return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
	}, 0)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) doQuery(ctx context.Context, purls []string) ([]Row, error) {
	body, err := json.Marshal(map[string][]string{"purls": purls})
	if err != nil {
		return nil, fmt.Errorf("marshaling batch request: %w", err)
	}

	url := c.baseURL + batchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeRows(resp.Body)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthRequired

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited

	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnreachable, resp.StatusCode)

	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(b)}
	}
}

// decodeRows reads a newline-delimited JSON stream of Row values.
func decodeRows(r io.Reader) ([]Row, error) {
	var rows []Row
	dec := json.NewDecoder(r)
	for {
		var row Row
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decoding batch response: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
