package extract

import (
	"context"
	"testing"
)

const tweetHTML = `<html>
<head>
	<title>Jane Dev on X: "shipping is a feature" / X</title>
	<meta property="og:title" content="Jane Dev on X">
	<meta property="og:description" content="&quot;shipping is a feature&quot;">
	<meta property="og:image" content="https://pbs.example.com/img.jpg">
	<meta property="og:site_name" content="X (formerly Twitter)">
	<meta property="og:type" content="article">
	<meta name="twitter:card" content="summary_large_image">
	<meta name="twitter:creator" content="@janedev">
</head>
<body></body>
</html>`

func TestTwitterExtractor_Matches(t *testing.T) {
	e := NewTwitterExtractor()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://twitter.com/janedev/status/12345", true},
		{"https://x.com/janedev/status/12345", true},
		{"https://mobile.twitter.com/janedev/status/12345", true},
		{"https://www.x.com/janedev/status/12345?s=20", true},
		// Profiles, searches, and lookalike domains fall through.
		{"https://x.com/janedev", false},
		{"https://twitter.com/search?q=go", false},
		{"https://nitter.example.com/janedev/status/12345", false},
		{"https://example.com/status/12345", false},
	}
	for _, tt := range tests {
		if got := e.Matches(tt.url); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestTwitterExtractor_Extract(t *testing.T) {
	e := NewTwitterExtractor()
	url := "https://x.com/janedev/status/1234567890123"

	content, err := e.Extract(context.Background(), url, []byte(tweetHTML))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if content.SiteKind != SiteKindTwitter {
		t.Errorf("content.SiteKind = %q, want %q", content.SiteKind, SiteKindTwitter)
	}
	if content.Title != "Jane Dev on X" {
		t.Errorf("content.Title = %q", content.Title)
	}
	// The wrapping typographic quotes are stripped from the post body.
	if content.TextFull != "shipping is a feature" {
		t.Errorf("content.TextFull = %q", content.TextFull)
	}
	if content.WordCount != 4 {
		t.Errorf("content.WordCount = %d, want 4", content.WordCount)
	}

	if content.Metadata["platform"] != "x" {
		t.Errorf("metadata platform = %v, want x", content.Metadata["platform"])
	}
	if content.Metadata["tweet_id"] != "1234567890123" {
		t.Errorf("metadata tweet_id = %v", content.Metadata["tweet_id"])
	}
	if content.Metadata["card_type"] != "summary_large_image" {
		t.Errorf("metadata card_type = %v", content.Metadata["card_type"])
	}

	author, ok := content.Metadata["author"].(map[string]any)
	if !ok {
		t.Fatalf("metadata author = %T, want map", content.Metadata["author"])
	}
	if author["username"] != "janedev" {
		t.Errorf("author username = %v", author["username"])
	}
	if author["display_name"] != "Jane Dev" {
		t.Errorf("author display_name = %v", author["display_name"])
	}
	if author["twitter_handle"] != "@janedev" {
		t.Errorf("author twitter_handle = %v", author["twitter_handle"])
	}
}

func TestTwitterExtractor_TextFallsBackToTitle(t *testing.T) {
	e := NewTwitterExtractor()
	html := `<html><head><meta property="og:title" content="Jane Dev on X"></head><body></body></html>`

	content, err := e.Extract(context.Background(), "https://x.com/janedev/status/1", []byte(html))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if content.TextFull != "Jane Dev on X" {
		t.Errorf("content.TextFull = %q, want title fallback", content.TextFull)
	}
}

func TestTwitterExtractor_PlatformFromDomain(t *testing.T) {
	e := NewTwitterExtractor()

	content, err := e.Extract(context.Background(), "https://twitter.com/janedev/status/1", []byte(tweetHTML))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if content.Metadata["platform"] != "twitter" {
		t.Errorf("metadata platform = %v, want twitter", content.Metadata["platform"])
	}
}
