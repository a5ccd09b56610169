package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DBPath != "tabtriage.db" {
		t.Errorf("cfg.DBPath = %q", cfg.DBPath)
	}
	if cfg.Fetch.Workers != 4 {
		t.Errorf("cfg.Fetch.Workers = %d, want 4", cfg.Fetch.Workers)
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Errorf("cfg.LLM.MaxRetries = %d, want 3", cfg.LLM.MaxRetries)
	}
	if cfg.LLM.MaxTextChars != 4000 {
		t.Errorf("cfg.LLM.MaxTextChars = %d, want 4000", cfg.LLM.MaxTextChars)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `db_path: /tmp/other.db
fetch:
  workers: 8
llm:
  model: gemini-2.5-pro
  max_retries: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DBPath != "/tmp/other.db" {
		t.Errorf("cfg.DBPath = %q", cfg.DBPath)
	}
	if cfg.Fetch.Workers != 8 {
		t.Errorf("cfg.Fetch.Workers = %d, want 8", cfg.Fetch.Workers)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Errorf("cfg.LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxRetries != 5 {
		t.Errorf("cfg.LLM.MaxRetries = %d, want 5", cfg.LLM.MaxRetries)
	}
	// Untouched keys keep their defaults.
	if cfg.YouTube.Tool != "yt-dlp" {
		t.Errorf("cfg.YouTube.Tool = %q, want default", cfg.YouTube.Tool)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fetch: [not a map"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() succeeded on malformed YAML, want error")
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.TimeoutSeconds = 12
	cfg.LLM.TimeoutSeconds = 90
	cfg.LLM.RetryDelaySeconds = 2

	if cfg.FetchTimeout() != 12*time.Second {
		t.Errorf("FetchTimeout() = %v", cfg.FetchTimeout())
	}
	if cfg.LLMTimeout() != 90*time.Second {
		t.Errorf("LLMTimeout() = %v", cfg.LLMTimeout())
	}
	if cfg.RetryDelay() != 2*time.Second {
		t.Errorf("RetryDelay() = %v", cfg.RetryDelay())
	}
}

func TestConfig_LLMAPIKeyPrecedence(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("GOOGLE_API_KEY", "fallback")
	if got := cfg.LLMAPIKey(); got != "primary" {
		t.Errorf("LLMAPIKey() = %q, want GEMINI_API_KEY first", got)
	}

	t.Setenv("GEMINI_API_KEY", "")
	if got := cfg.LLMAPIKey(); got != "fallback" {
		t.Errorf("LLMAPIKey() = %q, want GOOGLE_API_KEY fallback", got)
	}
}
