// Package enrich runs LLM enrichment over parsed tab content. The engine
// owns the retry and validation loop; the actual model call is behind the
// Predictor interface so tests can run without a live model.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"tabtriage/models"
)

// truncationMarker is appended when prompt text is cut at the char limit.
const truncationMarker = "... [truncated]"

// Defaults substituted into the prompt when extraction came back empty.
const (
	defaultTitle = "Untitled"
	defaultText  = "No content available"
)

// Predictor produces one enrichment from one request. Implementations
// must be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, req models.EnrichmentRequest) (*models.Enrichment, error)
}

// PredictionError is a failed model call that still produced output.
// RawOutput holds the unparsed model text for postmortem inspection.
type PredictionError struct {
	RawOutput string
	Err       error
}

func (e *PredictionError) Error() string { return fmt.Sprintf("prediction failed: %v", e.Err) }
func (e *PredictionError) Unwrap() error { return e.Err }

// ExhaustedError means every attempt failed. RawOutput carries the last
// raw model output seen, if any, so it can be stored with the failure.
type ExhaustedError struct {
	Attempts  int
	LastErr   error
	RawOutput string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("enrichment failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Engine drives the enrichment loop: build a bounded request, call the
// predictor up to maxRetries times, validate, clamp.
type Engine struct {
	predictor    Predictor
	modelName    string
	maxRetries   int
	maxTextChars int
	retryDelay   time.Duration
	logger       *slog.Logger
}

// NewEngine builds an engine from config. A nil logger gets the default.
func NewEngine(predictor Predictor, cfg *models.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	maxRetries := cfg.LLM.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Engine{
		predictor:    predictor,
		modelName:    cfg.LLM.Model,
		maxRetries:   maxRetries,
		maxTextChars: cfg.LLM.MaxTextChars,
		retryDelay:   cfg.RetryDelay(),
		logger:       logger,
	}
}

// Enrich runs the full loop for one tab. On success the returned
// enrichment is validated, clamped, and stamped with the model name. On
// exhaustion the error is an *ExhaustedError.
func (e *Engine) Enrich(ctx context.Context, tab *models.TabItem, content *models.ExtractedContent) (*models.Enrichment, error) {
	req := e.buildRequest(tab, content)

	var lastErr error
	var rawOutput string
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if attempt > 1 && e.retryDelay > 0 {
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				return nil, &ExhaustedError{Attempts: attempt - 1, LastErr: lastErr, RawOutput: rawOutput}
			}
		}

		result, err := e.predictor.Predict(ctx, req)
		if err == nil {
			// Validation failures count as failed attempts; a malformed
			// result is never stored.
			result.Clamp()
			if verr := result.Validate(); verr != nil {
				err = verr
			} else {
				result.TabID = tab.ID
				result.ModelName = e.modelName
				return result, nil
			}
		}

		lastErr = err
		var perr *PredictionError
		if errors.As(err, &perr) && perr.RawOutput != "" {
			rawOutput = perr.RawOutput
		}
		e.logger.Warn("enrichment attempt failed",
			"tab_id", tab.ID,
			"url", tab.URL,
			"attempt", attempt,
			"max_retries", e.maxRetries,
			"error", err)
	}

	return nil, &ExhaustedError{Attempts: e.maxRetries, LastErr: lastErr, RawOutput: rawOutput}
}

// buildRequest assembles the bounded prompt context. Text is truncated at
// the char limit and empty fields get explicit placeholders so the model
// never sees a blank prompt.
func (e *Engine) buildRequest(tab *models.TabItem, content *models.ExtractedContent) models.EnrichmentRequest {
	req := models.EnrichmentRequest{
		URL:      tab.URL,
		Title:    defaultTitle,
		SiteKind: content.SiteKind,
		Text:     defaultText,
	}

	if t := strings.TrimSpace(content.Title); t != "" {
		req.Title = t
	} else if t := strings.TrimSpace(tab.PageTitle); t != "" {
		req.Title = t
	}

	if text := strings.TrimSpace(content.TextFull); text != "" {
		if e.maxTextChars > 0 && len(text) > e.maxTextChars {
			text = truncateText(text, e.maxTextChars) + truncationMarker
		}
		req.Text = text
	}

	req.WordCount = content.WordCount
	if content.VideoSeconds != nil {
		req.VideoSeconds = *content.VideoSeconds
	}
	return req
}

// truncateText cuts s to at most max bytes without splitting a rune, so
// the truncated prompt stays valid UTF-8.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
