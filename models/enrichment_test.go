package models

import "testing"

func validEnrichment() *Enrichment {
	readMin := 5
	return &Enrichment{
		Summary:     "A practical look at profiling Go services in production.",
		ContentType: ContentTypeArticle,
		Tags:        []string{"go", "profiling"},
		Projects:    []string{"perf-work"},
		EstReadMin:  &readMin,
		Priority:    "medium",
	}
}

func TestEnrichment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Enrichment)
		wantErr bool
	}{
		{"valid", func(e *Enrichment) {}, false},
		{"no priority is fine", func(e *Enrichment) { e.Priority = "" }, false},
		{"no read estimate is fine", func(e *Enrichment) { e.EstReadMin = nil }, false},
		{"summary too short", func(e *Enrichment) { e.Summary = "short" }, true},
		{"unknown content type", func(e *Enrichment) { e.ContentType = "podcast" }, true},
		{"unknown priority", func(e *Enrichment) { e.Priority = "urgent" }, true},
		{"read estimate zero", func(e *Enrichment) { v := 0; e.EstReadMin = &v }, true},
		{"read estimate too large", func(e *Enrichment) { v := 601; e.EstReadMin = &v }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEnrichment()
			tt.mutate(e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnrichment_Clamp(t *testing.T) {
	e := validEnrichment()
	for i := 0; i < 15; i++ {
		e.Tags = append(e.Tags, "extra")
		e.Projects = append(e.Projects, "extra")
	}

	e.Clamp()

	if len(e.Tags) != MaxTags {
		t.Errorf("len(e.Tags) = %d, want %d", len(e.Tags), MaxTags)
	}
	if len(e.Projects) != MaxProjects {
		t.Errorf("len(e.Projects) = %d, want %d", len(e.Projects), MaxProjects)
	}
	// Order preserved: the originals stay in front.
	if e.Tags[0] != "go" || e.Tags[1] != "profiling" {
		t.Errorf("e.Tags front = %v, want original order", e.Tags[:2])
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"two words", 2},
		{"line\nbreaks\tand   spaces", 4},
	}
	for _, tt := range tests {
		if got := CountWords(tt.text); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
