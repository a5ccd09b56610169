package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tabtriage/models"
)

// SiteKindTwitter marks content produced by the Twitter/X extractor.
const SiteKindTwitter = "twitter"

// twitterDomains is the allowlist of hosts this extractor considers.
var twitterDomains = map[string]struct{}{
	"twitter.com":        {},
	"www.twitter.com":    {},
	"mobile.twitter.com": {},
	"x.com":              {},
	"www.x.com":          {},
}

var tweetIDRe = regexp.MustCompile(`/status/(\d+)`)
var displayNameRe = regexp.MustCompile(`^([^(@]+?)(?:\s+on\s+(?:X|Twitter):|(?:\s*\(@\w+\)\s*/\s*(?:X|Twitter)))`)

// TwitterExtractor handles individual Twitter/X posts. The platform's
// markup is client-rendered, so content comes purely from the meta tags
// published for link previews; no JS execution is assumed.
type TwitterExtractor struct{}

func NewTwitterExtractor() *TwitterExtractor {
	return &TwitterExtractor{}
}

func (t *TwitterExtractor) Name() string { return "twitter" }

// Matches requires both an allowlisted domain and a /status/<id> path
// shape, so profile and search URLs fall through to the generic extractor.
func (t *TwitterExtractor) Matches(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if _, ok := twitterDomains[strings.ToLower(parsed.Host)]; !ok {
		return false
	}
	return strings.Contains(parsed.Path, "/status/")
}

func (t *TwitterExtractor) Extract(ctx context.Context, rawURL string, rawHTML []byte) (*models.ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, &ExtractionError{URL: rawURL, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}

	title := t.extractTitle(doc)
	text := t.extractTweetText(doc)
	if text == "" {
		text = title
	}

	return &models.ExtractedContent{
		SiteKind:  SiteKindTwitter,
		Title:     title,
		TextFull:  text,
		WordCount: models.CountWords(text),
		Metadata:  t.extractMetadata(doc, rawURL),
	}, nil
}

func (t *TwitterExtractor) extractTitle(doc *goquery.Document) string {
	if title := metaContent(doc, "og:title"); title != "" {
		return title
	}
	if title := metaContent(doc, "twitter:title"); title != "" {
		return title
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = strings.Replace(title, " / X", "", 1)
	title = strings.Replace(title, " / Twitter", "", 1)
	return title
}

// extractTweetText pulls the post body from the description meta tags.
// Twitter wraps og:description in typographic quotes; strip one pair.
func (t *TwitterExtractor) extractTweetText(doc *goquery.Document) string {
	for _, name := range []string{"og:description", "twitter:description", "description"} {
		if text := metaContent(doc, name); text != "" {
			if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) > 1 {
				text = text[1 : len(text)-1]
			}
			return text
		}
	}
	return ""
}

func (t *TwitterExtractor) extractMetadata(doc *goquery.Document, rawURL string) map[string]any {
	domain := extractDomain(rawURL)
	platform := "x"
	if strings.Contains(domain, "twitter.com") {
		platform = "twitter"
	}

	metadata := map[string]any{
		"url":      rawURL,
		"domain":   domain,
		"platform": platform,
	}

	if author := t.extractAuthor(doc, rawURL); len(author) > 0 {
		metadata["author"] = author
	}
	if m := tweetIDRe.FindStringSubmatch(rawURL); m != nil {
		metadata["tweet_id"] = m[1]
	}
	if image := metaContent(doc, "og:image"); image != "" {
		metadata["image"] = image
	}
	if site := metaContent(doc, "og:site_name"); site != "" {
		metadata["site_name"] = site
	}
	if ogType := metaContent(doc, "og:type"); ogType != "" {
		metadata["content_type"] = ogType
	}
	if doc.Find("meta[property='og:video']").Length() > 0 {
		metadata["has_video"] = true
	}
	if card := metaContent(doc, "twitter:card"); card != "" {
		metadata["card_type"] = card
	}

	return metadata
}

// extractAuthor builds author info from the URL path (username) and the
// page title ("Display Name on X: ..." pattern).
func (t *TwitterExtractor) extractAuthor(doc *goquery.Document, rawURL string) map[string]any {
	author := map[string]any{}

	if parsed, err := url.Parse(rawURL); err == nil {
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) > 0 && parts[0] != "" {
			author["username"] = parts[0]
		}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if m := displayNameRe.FindStringSubmatch(title); m != nil {
		author["display_name"] = strings.TrimSpace(m[1])
	}

	if creator := metaContent(doc, "twitter:creator"); creator != "" {
		author["twitter_handle"] = creator
	}

	return author
}
