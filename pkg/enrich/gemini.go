package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"tabtriage/models"
)

const systemInstruction = `You triage saved browser tabs. Given a page's URL, title, and
extracted text, produce structured metadata: a 2-3 sentence summary, a
content type, topical tags, plausible project associations, an estimated
reading time in minutes, and a priority. Base everything strictly on the
provided content. Keep tags short and lowercase.`

// enrichmentSchema constrains the model to the enrichment output shape.
// Enum fields mirror the validation sets so a schema-conforming response
// always validates.
var enrichmentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "2-3 sentence summary of the content",
		},
		"content_type": {
			Type: genai.TypeString,
			Enum: models.ContentTypes,
		},
		"tags": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"projects": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"est_read_min": {
			Type:        genai.TypeInteger,
			Description: "estimated minutes to read or watch",
		},
		"priority": {
			Type: genai.TypeString,
			Enum: models.Priorities,
		},
	},
	Required: []string{"summary", "content_type", "tags", "projects"},
}

// GeminiPredictor calls the Gemini API with a response schema so the
// model returns enrichment JSON directly.
type GeminiPredictor struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiPredictor builds a predictor from config. The API key comes
// from the environment via cfg.LLMAPIKey.
func NewGeminiPredictor(ctx context.Context, cfg *models.Config) (*GeminiPredictor, error) {
	apiKey := cfg.LLMAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key set (GEMINI_API_KEY or GOOGLE_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiPredictor{
		client:  client,
		model:   cfg.LLM.Model,
		timeout: cfg.LLMTimeout(),
	}, nil
}

// Predict sends one enrichment request and parses the JSON response. A
// response that arrives but fails to parse is wrapped in *PredictionError
// carrying the raw text.
func (p *GeminiPredictor) Predict(ctx context.Context, req models.EnrichmentRequest) (*models.Enrichment, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(req), genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    enrichmentSchema,
		Temperature:       genai.Ptr[float32](0.2),
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, &PredictionError{Err: fmt.Errorf("generate content failed: %w", err)}
	}

	raw := result.Text()
	if strings.TrimSpace(raw) == "" {
		return nil, &PredictionError{Err: fmt.Errorf("empty model response")}
	}

	var enrichment models.Enrichment
	if err := json.Unmarshal([]byte(raw), &enrichment); err != nil {
		return nil, &PredictionError{
			RawOutput: raw,
			Err:       fmt.Errorf("failed to parse model response: %w", err),
		}
	}
	return &enrichment, nil
}

// buildPrompt renders the request as a labeled block. Field order is
// stable so prompts are reproducible.
func buildPrompt(req models.EnrichmentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", req.URL)
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Source kind: %s\n", req.SiteKind)
	fmt.Fprintf(&b, "Word count: %d\n", req.WordCount)
	if req.VideoSeconds > 0 {
		fmt.Fprintf(&b, "Video length: %d seconds\n", req.VideoSeconds)
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n", req.Text)
	return b.String()
}
