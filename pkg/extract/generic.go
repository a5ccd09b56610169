package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"tabtriage/models"
)

// SiteKindGeneric marks content produced by the fallback HTML extractor.
const SiteKindGeneric = "generic_html"

// Tags stripped from the document before any text extraction.
const excludedTags = "script,style,nav,header,footer,aside,noscript,iframe,form,button,input,select,textarea,svg,canvas,video,audio"

// Selectors tried in order when locating the main content container.
var contentSelectors = []string{"article", "main", "[role='main']"}

// Text fragments shorter than this are treated as navigation noise.
const minFragmentLen = 20

var whitespaceRe = regexp.MustCompile(`\s+`)
var ellipsisRe = regexp.MustCompile(`[.]{3,}`)

// GenericExtractor is the universal fallback: heuristic extraction of
// title, main text, and metadata from arbitrary HTML. It matches every
// well-formed http(s) URL and must be registered last.
type GenericExtractor struct {
	langDetector lingua.LanguageDetector
}

// NewGenericExtractor builds the fallback extractor. The language detector
// is constructed once here; it is read-only afterwards.
func NewGenericExtractor() *GenericExtractor {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.German, lingua.French, lingua.Spanish,
			lingua.Portuguese, lingua.Italian, lingua.Dutch, lingua.Russian,
			lingua.Chinese, lingua.Japanese,
		).
		Build()
	return &GenericExtractor{langDetector: detector}
}

func (g *GenericExtractor) Name() string { return "generic_html" }

// Matches accepts any well-formed http(s) URL.
func (g *GenericExtractor) Matches(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return false
	}
	parsed, err := url.Parse(rawURL)
	return err == nil && parsed.Host != ""
}

func (g *GenericExtractor) Extract(ctx context.Context, rawURL string, rawHTML []byte) (*models.ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, &ExtractionError{URL: rawURL, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}

	metadata := g.extractMetadata(doc, rawURL)
	title := g.extractTitle(doc)

	doc.Find(excludedTags).Remove()
	text := g.extractText(doc)

	g.enrichFromReadability(rawURL, rawHTML, metadata)
	if _, ok := metadata["language"]; !ok && text != "" {
		if lang, exists := g.langDetector.DetectLanguageOf(text); exists {
			metadata["language"] = strings.ToLower(lang.IsoCode639_1().String())
		}
	}

	return &models.ExtractedContent{
		SiteKind:  SiteKindGeneric,
		Title:     title,
		TextFull:  text,
		WordCount: models.CountWords(text),
		Metadata:  metadata,
	}, nil
}

// extractTitle prefers <title>, stripped of site-name suffixes, falling
// back to the first <h1>.
func (g *GenericExtractor) extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return cleanTitle(title)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// cleanTitle drops common " | Site Name" style suffixes, keeping the head
// part only when it is substantial on its own.
func cleanTitle(title string) string {
	separators := []string{" | ", " - ", " – ", " — ", " :: "}
	for _, sep := range separators {
		if strings.Contains(title, sep) {
			head := strings.SplitN(title, sep, 2)[0]
			if len(head) > 10 {
				title = head
				break
			}
		}
	}
	return strings.TrimSpace(title)
}

// extractText locates the main content container and collects block-level
// text fragments, joined with paragraph separators. If no fragment
// qualifies, it falls back to the full container text with whitespace
// normalized.
func (g *GenericExtractor) extractText(doc *goquery.Document) string {
	var container *goquery.Selection
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			container = s
			break
		}
	}
	if container == nil {
		container = doc.Find("body").First()
	}
	if container.Length() == 0 {
		return ""
	}

	var paragraphs []string
	container.Find("p,li,h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > minFragmentLen {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}

	return cleanText(container.Text())
}

// cleanText normalizes whitespace and collapses runaway ellipses.
func cleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = ellipsisRe.ReplaceAllString(text, "...")
	return strings.TrimSpace(text)
}

// metaMappings maps metadata keys to the meta tag names tried in order.
var metaMappings = []struct {
	key   string
	names []string
}{
	{"description", []string{"description", "og:description", "twitter:description"}},
	{"author", []string{"author", "og:author", "article:author"}},
	{"published", []string{"article:published_time", "datePublished", "date"}},
	{"image", []string{"og:image", "twitter:image"}},
	{"site_name", []string{"og:site_name"}},
	{"type", []string{"og:type"}},
}

func (g *GenericExtractor) extractMetadata(doc *goquery.Document, rawURL string) map[string]any {
	metadata := map[string]any{
		"url":    rawURL,
		"domain": extractDomain(rawURL),
	}

	for _, m := range metaMappings {
		for _, name := range m.names {
			if content := metaContent(doc, name); content != "" {
				metadata[m.key] = content
				break
			}
		}
	}

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok && href != "" {
		metadata["canonical_url"] = href
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok && lang != "" {
		metadata["language"] = lang
	}

	return metadata
}

// enrichFromReadability adds byline/excerpt/site metadata when readability
// can distill the page. Failures are ignored; this is enrichment only.
func (g *GenericExtractor) enrichFromReadability(rawURL string, rawHTML []byte, metadata map[string]any) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(rawHTML), parsedURL)
	if err != nil {
		return
	}
	if _, ok := metadata["author"]; !ok && article.Byline != "" {
		metadata["author"] = article.Byline
	}
	if _, ok := metadata["description"]; !ok && article.Excerpt != "" {
		metadata["description"] = article.Excerpt
	}
	if _, ok := metadata["site_name"]; !ok && article.SiteName != "" {
		metadata["site_name"] = article.SiteName
	}
	if _, ok := metadata["image"]; !ok && article.Image != "" {
		metadata["image"] = article.Image
	}
}

// metaContent looks a meta tag up by name, then by property (Open Graph).
func metaContent(doc *goquery.Document, name string) string {
	for _, attr := range []string{"name", "property"} {
		sel := doc.Find(fmt.Sprintf("meta[%s='%s']", attr, name)).First()
		if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// extractDomain returns the lowercased host of a URL.
func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
