package models

import "fmt"

// Content type classifications the enrichment model may assign.
const (
	ContentTypeArticle   = "article"
	ContentTypeVideo     = "video"
	ContentTypePaper     = "paper"
	ContentTypeCodeRepo  = "code_repo"
	ContentTypeReference = "reference"
	ContentTypeMisc      = "misc"
)

// ContentTypes lists all valid content type values, in display order.
var ContentTypes = []string{
	ContentTypeArticle,
	ContentTypeVideo,
	ContentTypePaper,
	ContentTypeCodeRepo,
	ContentTypeReference,
	ContentTypeMisc,
}

// Priority levels the enrichment model may suggest.
var Priorities = []string{"high", "medium", "low"}

// Limits on enrichment output, enforced regardless of what the model returns.
const (
	MaxTags       = 10
	MaxProjects   = 5
	MinReadMin    = 1
	MaxReadMin    = 600
	MinSummaryLen = 10
)

// EnrichmentRequest is the bounded prompt context for one enrichment call.
type EnrichmentRequest struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	SiteKind     string `json:"site_kind"`
	Text         string `json:"text,omitempty"`
	WordCount    int    `json:"word_count"`
	VideoSeconds int64  `json:"video_seconds"`
}

// Enrichment is the LLM-generated structured metadata for a tab,
// one-to-one with a TabItem once it reaches StatusEnriched.
type Enrichment struct {
	TabID       int64    `json:"tab_id,omitempty"`
	Summary     string   `json:"summary"`
	ContentType string   `json:"content_type"`
	Tags        []string `json:"tags"`
	Projects    []string `json:"projects"`
	EstReadMin  *int     `json:"est_read_min,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	ModelName   string   `json:"model_name,omitempty"`
}

// Validate checks the enrichment against the output schema. A failing
// result is treated as a failed attempt by the retry loop, never stored.
func (e *Enrichment) Validate() error {
	if len(e.Summary) < MinSummaryLen {
		return fmt.Errorf("summary too short (%d chars)", len(e.Summary))
	}
	if !contains(ContentTypes, e.ContentType) {
		return fmt.Errorf("unknown content_type %q", e.ContentType)
	}
	if e.Priority != "" && !contains(Priorities, e.Priority) {
		return fmt.Errorf("unknown priority %q", e.Priority)
	}
	if e.EstReadMin != nil && (*e.EstReadMin < MinReadMin || *e.EstReadMin > MaxReadMin) {
		return fmt.Errorf("est_read_min %d out of range [%d,%d]", *e.EstReadMin, MinReadMin, MaxReadMin)
	}
	return nil
}

// Clamp trims tags and projects to their limits, preserving order.
func (e *Enrichment) Clamp() {
	if len(e.Tags) > MaxTags {
		e.Tags = e.Tags[:MaxTags]
	}
	if len(e.Projects) > MaxProjects {
		e.Projects = e.Projects[:MaxProjects]
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
