// Package fetcher retrieves raw page bytes over HTTP. Failures are
// reported as *FetchError so the pipeline can record them on the tab
// without retrying; retries are an operator decision upstream.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Browser-like request headers. Several sites serve meta-tag-free stub
// pages to unknown agents, which starves the extractors.
var defaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// maxBodyBytes caps the response body read to keep a hostile or broken
// server from exhausting memory.
const maxBodyBytes = 10 << 20

// FetchError describes a failed page retrieval: network error, timeout,
// or a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Fetcher wraps a shared HTTP client. Safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher builds a fetcher with a per-request timeout. Redirects are
// followed by the default client policy.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// GetHTMLBytes fetches the URL and returns the raw body. The context
// bounds the request in addition to the client timeout; a timeout is an
// attempt failure, not a special cancellation path.
func (f *Fetcher) GetHTMLBytes(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return body, nil
}
