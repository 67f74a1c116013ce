package advisory

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the service-defined ceiling on PURLs per request.
	DefaultBatchSize = 100

	// DefaultConcurrency bounds in-flight batch requests so one slow batch
	// does not serialize the rest.
	DefaultConcurrency = 5
)

// Fetcher streams deduplicated PURLs to the advisory service in bounded-size
// batches and yields one Result per requested PURL.
type Fetcher struct {
	client      *Client
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithBatchSize caps the number of PURLs per request.
func WithBatchSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithConcurrency caps the number of in-flight batch requests.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithFetcherLogger sets the diagnostic logger.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher creates a Fetcher backed by the given client.
func NewFetcher(client *Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues batch queries for the given PURLs and returns a channel that
// yields exactly one Result per unique PURL, then closes. A failed batch
// yields a per-PURL error Result for its members and never aborts other
// batches. Cancel ctx to abandon outstanding batches; their PURLs surface as
// error Results carrying the context error.
func (f *Fetcher) Fetch(ctx context.Context, purls []string) <-chan Result {
	unique := Dedup(purls)
	out := make(chan Result)

	go func() {
		defer close(out)

		g := &errgroup.Group{}
		g.SetLimit(f.concurrency)

		for start := 0; start < len(unique); start += f.batchSize {
			end := min(start+f.batchSize, len(unique))
			batch := unique[start:end]

			g.Go(func() error {
				f.emitBatch(ctx, batch, out)
				return nil
			})
		}

		_ = g.Wait()
	}()

	return out
}

func (f *Fetcher) emitBatch(ctx context.Context, batch []string, out chan<- Result) {
	if err := ctx.Err(); err != nil {
		for _, p := range batch {
			out <- Result{PURL: p, Err: err}
		}
		return
	}

	rows, err := f.client.QueryBatch(ctx, batch)
	if err != nil {
		f.logger.Debug("advisory batch failed", "purls", len(batch), "error", err)
		for _, p := range batch {
			out <- Result{PURL: p, Err: err}
		}
		return
	}

	byPURL := make(map[string]Row, len(rows))
	for _, row := range rows {
		byPURL[row.PURL] = row
	}

	for _, p := range batch {
		row, ok := byPURL[p]
		switch {
		case !ok:
			out <- Result{PURL: p, Err: ErrMissingResult}
		case row.Error != "":
			out <- Result{PURL: p, Err: &ServiceError{PURL: p, Reason: row.Error}}
		default:
			out <- Result{PURL: p, Alerts: row.Alerts}
		}
	}
}

// Dedup returns the unique PURLs in first-seen order. The same PURL is never
// sent to the service twice in one session.
func Dedup(purls []string) []string {
	seen := make(map[string]bool, len(purls))
	unique := make([]string, 0, len(purls))
	for _, p := range purls {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	return unique
}
