// Package extract implements the site extractors and their dispatch
// registry. Extractors are held in a fixed priority order, most specific
// first; a URL is routed to the first extractor whose Matches predicate
// accepts it. The generic HTML extractor matches any well-formed http(s)
// URL and is registered last, so dispatch never misses for a valid URL.
package extract

import (
	"context"
	"errors"
	"fmt"

	"tabtriage/models"
)

// ErrNoMatch means no registered extractor accepted the URL. With the
// generic extractor registered this indicates a bug, not a recoverable
// condition.
var ErrNoMatch = errors.New("no extractor matched URL")

// ExtractionError means the page content was unusable even after the
// extractor's own fallbacks. The tab is recorded as fetch_error.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor turns raw page content into normalized structured content for
// one class of site.
type Extractor interface {
	// Name identifies the extractor in logs and registry listings.
	Name() string
	// Matches reports whether this extractor should handle the URL.
	Matches(url string) bool
	// Extract produces normalized content from the URL and raw page bytes.
	Extract(ctx context.Context, url string, rawHTML []byte) (*models.ExtractedContent, error)
}

// Registry dispatches URLs to extractors with strict first-match-wins
// semantics. Registration order is a configuration invariant: re-registering
// in a different order changes routing. The extractor list is read-only
// after startup and safe for concurrent use.
type Registry struct {
	extractors []Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an extractor. Register specific extractors before
// generic ones.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Select returns the first extractor whose Matches predicate accepts the
// URL, or ErrNoMatch.
func (r *Registry) Select(url string) (Extractor, error) {
	for _, e := range r.extractors {
		if e.Matches(url) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMatch, url)
}

// Extract dispatches the URL to its extractor and runs it.
func (r *Registry) Extract(ctx context.Context, url string, rawHTML []byte) (*models.ExtractedContent, error) {
	e, err := r.Select(url)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, url, rawHTML)
}

// Names lists the registered extractors in dispatch order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.extractors))
	for i, e := range r.extractors {
		names[i] = e.Name()
	}
	return names
}

// DefaultRegistry builds the standard registry: YouTube, then Twitter,
// then the generic HTML fallback.
func DefaultRegistry(cfg *models.Config) *Registry {
	r := NewRegistry()
	r.Register(NewYouTubeExtractor(cfg.YouTube.Tool, cfg.YouTubeTimeout()))
	r.Register(NewTwitterExtractor())
	r.Register(NewGenericExtractor())
	return r
}
