package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(url,
		WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		WithBaseDelay(5*time.Millisecond),
		WithMaxRetries(2),
	)
}

func writeRows(t *testing.T, w http.ResponseWriter, rows []Row) {
	t.Helper()
	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			t.Fatalf("encoding row: %v", err)
		}
	}
}

func TestQueryBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req struct {
			PURLs []string `json:"purls"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.PURLs) != 2 {
			t.Errorf("got %d purls, want 2", len(req.PURLs))
		}

		writeRows(t, w, []Row{
			{PURL: "pkg:npm/evil-pkg@1.0.0", Alerts: []Alert{{Category: Malware, Severity: SeverityCritical, PURL: "pkg:npm/evil-pkg@1.0.0"}}},
			{PURL: "pkg:npm/lodash@4.17.21", Alerts: []Alert{}},
		})
	}))
	defer server.Close()

	rows, err := newTestClient(server.URL).QueryBatch(context.Background(), []string{
		"pkg:npm/evil-pkg@1.0.0", "pkg:npm/lodash@4.17.21",
	})
	if err != nil {
		t.Fatalf("QueryBatch failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Alerts[0].Category != Malware {
		t.Errorf("category = %q, want %q", rows[0].Alerts[0].Category, Malware)
	}
}

func TestQueryBatchAuthHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeRows(t, w, nil)
	}))
	defer server.Close()

	c := NewClient(server.URL, WithToken("sekrit"))
	if _, err := c.QueryBatch(context.Background(), []string{"pkg:npm/lodash"}); err != nil {
		t.Fatalf("QueryBatch failed: %v", err)
	}
	if got != "Bearer sekrit" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer sekrit")
	}
}

func TestQueryBatchNoTokenStillQueries(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeRows(t, w, []Row{{PURL: "pkg:npm/lodash", Alerts: []Alert{}}})
	}))
	defer server.Close()

	rows, err := NewClient(server.URL).QueryBatch(context.Background(), []string{"pkg:npm/lodash"})
	if err != nil {
		t.Fatalf("QueryBatch failed: %v", err)
	}
	if got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestQueryBatchAuthRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).QueryBatch(context.Background(), []string{"pkg:npm/lodash"})
	if !errors.Is(err, ErrAuthRequired) {
		t.Errorf("QueryBatch = %v, want ErrAuthRequired", err)
	}
}

func TestQueryBatchRateLimitRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeRows(t, w, []Row{{PURL: "pkg:npm/lodash", Alerts: []Alert{}}})
	}))
	defer server.Close()

	rows, err := newTestClient(server.URL).QueryBatch(context.Background(), []string{"pkg:npm/lodash"})
	if err != nil {
		t.Fatalf("QueryBatch failed after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestQueryBatchServerErrorIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).QueryBatch(context.Background(), []string{"pkg:npm/lodash"})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("QueryBatch = %v, want ErrUnreachable", err)
	}
}

func TestQueryBatchConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening

	_, err := newTestClient(server.URL).QueryBatch(context.Background(), []string{"pkg:npm/lodash"})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("QueryBatch = %v, want ErrUnreachable", err)
	}
}

func TestQueryBatchPerPURLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRows(t, w, []Row{
			{PURL: "pkg:npm/lodash", Alerts: []Alert{}},
			{PURL: "pkg:npm/ghost-pkg", Error: "not found"},
		})
	}))
	defer server.Close()

	rows, err := newTestClient(server.URL).QueryBatch(context.Background(), []string{"pkg:npm/lodash", "pkg:npm/ghost-pkg"})
	if err != nil {
		t.Fatalf("QueryBatch failed: %v", err)
	}
	if rows[1].Error != "not found" {
		t.Errorf("row error = %q, want %q", rows[1].Error, "not found")
	}
}

func TestClientCloseStopsRefresher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRows(t, w, []Row{{PURL: "pkg:npm/lodash@4.17.21", Alerts: []Alert{}}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.Close()
	client.Close() // idempotent

	// Closing only stops the DNS refresher; queries still work.
	rows, err := client.QueryBatch(context.Background(), []string{"pkg:npm/lodash@4.17.21"})
	if err != nil {
		t.Fatalf("QueryBatch after Close failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}
