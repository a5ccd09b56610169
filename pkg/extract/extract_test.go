package extract

import (
	"context"
	"errors"
	"testing"

	"tabtriage/models"
)

// stubExtractor matches URLs containing its marker string.
type stubExtractor struct {
	name   string
	marker string
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Matches(url string) bool {
	return s.marker == "*" || containsMarker(url, s.marker)
}

func (s *stubExtractor) Extract(ctx context.Context, url string, rawHTML []byte) (*models.ExtractedContent, error) {
	return &models.ExtractedContent{SiteKind: s.name}, nil
}

func containsMarker(url, marker string) bool {
	for i := 0; i+len(marker) <= len(url); i++ {
		if url[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "alpha", marker: "special"})
	r.Register(&stubExtractor{name: "beta", marker: "special"})
	r.Register(&stubExtractor{name: "fallback", marker: "*"})

	// Both alpha and beta match; registration order decides.
	e, err := r.Select("https://example.com/special/page")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if e.Name() != "alpha" {
		t.Errorf("Select() = %s, want alpha (first registered match)", e.Name())
	}

	e, err = r.Select("https://example.com/ordinary")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if e.Name() != "fallback" {
		t.Errorf("Select() = %s, want fallback", e.Name())
	}
}

func TestRegistry_NoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "alpha", marker: "special"})

	_, err := r.Select("https://example.com/ordinary")
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("Select() error = %v, want ErrNoMatch", err)
	}

	_, err = r.Extract(context.Background(), "https://example.com/ordinary", nil)
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("Extract() error = %v, want ErrNoMatch", err)
	}
}

func TestDefaultRegistry_Routing(t *testing.T) {
	cfg := models.DefaultConfig()
	r := DefaultRegistry(cfg)

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "youtube"},
		{"https://youtu.be/dQw4w9WgXcQ", "youtube"},
		{"https://x.com/someone/status/1234567890", "twitter"},
		{"https://twitter.com/someone/status/1234567890", "twitter"},
		// Profile pages are not posts; the generic extractor takes them.
		{"https://x.com/someone", "generic_html"},
		{"https://example.com/article", "generic_html"},
		{"http://blog.example.org/post/1", "generic_html"},
	}
	for _, tt := range tests {
		e, err := r.Select(tt.url)
		if err != nil {
			t.Errorf("Select(%q) error = %v", tt.url, err)
			continue
		}
		if e.Name() != tt.want {
			t.Errorf("Select(%q) = %s, want %s", tt.url, e.Name(), tt.want)
		}
	}
}

func TestDefaultRegistry_GenericNeverMisses(t *testing.T) {
	cfg := models.DefaultConfig()
	r := DefaultRegistry(cfg)

	// Every well-formed http(s) URL must route somewhere.
	urls := []string{
		"https://example.com",
		"http://a.b.c.example.net/deep/path?q=1#frag",
		"https://localhost:8080/dev",
	}
	for _, u := range urls {
		if _, err := r.Select(u); err != nil {
			t.Errorf("Select(%q) error = %v, want a match", u, err)
		}
	}

	// Non-http schemes have no extractor at all.
	if _, err := r.Select("ftp://example.com/file"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Select(ftp) error = %v, want ErrNoMatch", err)
	}
}

func TestDefaultRegistry_Names(t *testing.T) {
	cfg := models.DefaultConfig()
	r := DefaultRegistry(cfg)

	names := r.Names()
	want := []string{"youtube", "twitter", "generic_html"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
