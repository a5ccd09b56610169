package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the pipeline, loaded from a YAML
// file with CLI flags overriding per-run knobs. The LLM API key comes from
// the environment only, never from the file.
type Config struct {
	DBPath        string `yaml:"db_path"`
	DefaultUserID string `yaml:"default_user_id"`

	Ingest struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"ingest"`

	Fetch struct {
		Workers        int `yaml:"workers"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"fetch"`

	YouTube struct {
		Tool           string `yaml:"tool"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"youtube"`

	LLM struct {
		Model             string `yaml:"model"`
		TimeoutSeconds    int    `yaml:"timeout_seconds"`
		MaxRetries        int    `yaml:"max_retries"`
		MaxTextChars      int    `yaml:"max_text_chars"`
		Concurrency       int    `yaml:"concurrency"`
		RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	} `yaml:"llm"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{
		DBPath: "tabtriage.db",
	}
	cfg.Ingest.BatchSize = 100
	cfg.Fetch.Workers = 4
	cfg.Fetch.TimeoutSeconds = 30
	cfg.YouTube.Tool = "yt-dlp"
	cfg.YouTube.TimeoutSeconds = 30
	cfg.LLM.Model = "gemini-2.5-flash"
	cfg.LLM.TimeoutSeconds = 60
	cfg.LLM.MaxRetries = 3
	cfg.LLM.MaxTextChars = 4000
	cfg.LLM.Concurrency = 2
	cfg.LLM.RetryDelaySeconds = 0
	return cfg
}

// LoadConfig reads the YAML config at path, layering it over the defaults.
// A missing file is not an error; everything then runs on defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LLMAPIKey returns the API key for the enrichment predictor.
func (c *Config) LLMAPIKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// FetchTimeout returns the per-request fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// YouTubeTimeout returns the metadata tool timeout as a duration.
func (c *Config) YouTubeTimeout() time.Duration {
	return time.Duration(c.YouTube.TimeoutSeconds) * time.Second
}

// LLMTimeout returns the per-attempt enrichment timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// RetryDelay returns the pause between enrichment attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.LLM.RetryDelaySeconds) * time.Second
}
