// Package dump1090 polls the JSON endpoints served by dump1090/PiAware
// (aircraft.json, receiver.json, stats.json and history_N.json) and
// reconciles successive snapshots into deduplicated aircraft sets.
//
// Field reference: https://github.com/flightaware/dump1090/blob/master/README-json.md
package dump1090

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher retrieves one JSON document from the receiver.
type Fetcher interface {
	// Fetch decodes the document at path (relative to the data root,
	// e.g. "aircraft.json") into v and reports whether data was obtained.
	// Transport and decode failures are logged, not returned: a missing
	// sample is a normal outcome when polling telemetry.
	Fetch(ctx context.Context, path string, v any) bool
}

// HTTPFetcher implements Fetcher with plain HTTP GETs.
// It never retries; the next poll is the retry.
type HTTPFetcher struct {
	// baseURL is the data root, e.g. "http://localhost:8080/data"
	baseURL string

	// httpClient is the HTTP client used for requests
	httpClient *http.Client

	// limiter paces consecutive requests (rate.Inf when unpaced)
	limiter *rate.Limiter
}

// FetcherOption customizes an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client. The default has no timeout
// of its own, so requests are bounded only by the transport and ctx.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithMinInterval spaces requests at least d apart. d <= 0 disables pacing.
func WithMinInterval(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// NewHTTPFetcher creates a fetcher rooted at baseURL.
func NewHTTPFetcher(baseURL string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the absolute URL for a document path.
func (f *HTTPFetcher) URL(path string) string {
	return f.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string, v any) bool {
	url := f.URL(path)
	if err := f.get(ctx, url, v); err != nil {
		log.Printf("dump1090: %v", err)
		return false
	}
	return true
}

func (f *HTTPFetcher) get(ctx context.Context, url string, v any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s returned status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", url, err)
	}

	return nil
}
