// Package bookmarks parses browser bookmark HTML exports into tab
// candidates. Only folders named with the session prefix are treated as
// tab collections; everything else in the export is ignored. The parser
// is a pure transform: no persistence, no network I/O.
package bookmarks

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tabtriage/models"
)

// SessionPrefix marks folders that hold saved browser tabs. The suffix
// after the prefix becomes the window label.
const SessionPrefix = "Session-"

// DefaultWindowLabel is used when a session folder has an empty suffix.
const DefaultWindowLabel = "default"

// ErrBadFormat means the document is not a bookmarks export at all.
// Fatal to the import run.
var ErrBadFormat = errors.New("malformed bookmarks export")

// CollectionStats describes one session folder in an export.
type CollectionStats struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ImportStats summarizes an export without ingesting it.
type ImportStats struct {
	Collections    []CollectionStats `json:"collections"`
	CollectionCnt  int               `json:"collection_count"`
	TotalBookmarks int               `json:"total_bookmarks"`
}

// Parse reads a bookmarks HTML export and returns all candidates found in
// session folders. Non-http(s) hrefs are silently skipped.
func Parse(r io.Reader) ([]models.BookmarkCandidate, error) {
	doc, err := load(r)
	if err != nil {
		return nil, err
	}

	var candidates []models.BookmarkCandidate
	eachSessionFolder(doc, func(label string, dl *goquery.Selection) {
		candidates = append(candidates, extractCandidates(dl, label)...)
	})
	return candidates, nil
}

// ParseFile is a convenience wrapper around Parse.
func ParseFile(path string) ([]models.BookmarkCandidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bookmarks file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Stats counts session folders and their bookmarks without building
// candidates.
func Stats(r io.Reader) (*ImportStats, error) {
	doc, err := load(r)
	if err != nil {
		return nil, err
	}

	stats := &ImportStats{}
	eachSessionFolder(doc, func(label string, dl *goquery.Selection) {
		count := 0
		dl.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if href, _ := a.Attr("href"); isHTTPURL(href) {
				count++
			}
		})
		stats.Collections = append(stats.Collections, CollectionStats{Label: label, Count: count})
		stats.TotalBookmarks += count
	})
	stats.CollectionCnt = len(stats.Collections)
	return stats, nil
}

func load(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	// A bookmarks export always carries link lists; a document with
	// neither is something else entirely.
	if doc.Find("dl").Length() == 0 && doc.Find("a").Length() == 0 {
		return nil, fmt.Errorf("%w: no bookmark structure found", ErrBadFormat)
	}
	return doc, nil
}

// eachSessionFolder walks all H3 folder headers, resolving each session
// folder's link-list container and invoking fn with its label.
func eachSessionFolder(doc *goquery.Document, fn func(label string, dl *goquery.Selection)) {
	doc.Find("h3").Each(func(_ int, h3 *goquery.Selection) {
		name := strings.TrimSpace(h3.Text())
		if !strings.HasPrefix(name, SessionPrefix) {
			return
		}
		label := strings.TrimPrefix(name, SessionPrefix)
		if label == "" {
			label = DefaultWindowLabel
		}
		if dl := folderContents(h3); dl != nil {
			fn(label, dl)
		}
	})
}

// folderContents finds the DL holding a folder's bookmarks. Depending on
// how the parser repaired the export's loose markup, the DL is either a
// sibling of the H3 inside its DT, or a sibling of the DT itself.
func folderContents(h3 *goquery.Selection) *goquery.Selection {
	if dl := h3.NextAllFiltered("dl").First(); dl.Length() > 0 {
		return dl
	}
	dt := h3.Closest("dt")
	if dt.Length() == 0 {
		return nil
	}
	if dl := dt.NextAllFiltered("dl").First(); dl.Length() > 0 {
		return dl
	}
	return nil
}

func extractCandidates(dl *goquery.Selection, label string) []models.BookmarkCandidate {
	var out []models.BookmarkCandidate
	dl.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !isHTTPURL(href) {
			return
		}

		candidate := models.BookmarkCandidate{
			URL:         href,
			PageTitle:   strings.TrimSpace(a.Text()),
			WindowLabel: label,
			CollectedAt: collectedAt(a),
		}
		candidate.Normalize()
		out = append(out, candidate)
	})
	return out
}

// collectedAt reads the add_date attribute (seconds since epoch),
// defaulting to now on absence or malformation.
func collectedAt(a *goquery.Selection) time.Time {
	raw, ok := a.Attr("add_date")
	if !ok {
		return time.Now().UTC()
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs < 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}

func isHTTPURL(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}
