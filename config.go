package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir = ".reddit-analysis"
	defaultBatchSize = 10
	defaultUserAgent = "recruitment_hell_analyzer/1.0"
)

//go:embed config/settings.yaml
var defaultSettings string

// Credentials holds the API credentials read from the environment.
type Credentials struct {
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	AnthropicAPIKey    string
}

// LoadCredentials reads credentials from the environment. Call godotenv.Load
// first if a .env file should be honored.
func LoadCredentials() *Credentials {
	userAgent := os.Getenv("REDDIT_USER_AGENT")
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Credentials{
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUserAgent:    userAgent,
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
	}
}

// Missing returns the names of required environment variables that are unset.
func (c *Credentials) Missing() []string {
	var missing []string
	if c.RedditClientID == "" {
		missing = append(missing, "REDDIT_CLIENT_ID")
	}
	if c.RedditClientSecret == "" {
		missing = append(missing, "REDDIT_CLIENT_SECRET")
	}
	if c.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	return missing
}

// AgentSettings configures a single model invocation role.
type AgentSettings struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	Subreddit string `yaml:"subreddit"`
	BatchSize int    `yaml:"batch_size"`
	Agents    struct {
		Extractor  AgentSettings `yaml:"extractor"`
		Summarizer AgentSettings `yaml:"summarizer"`
	} `yaml:"agents"`
	Limits struct {
		BatchChars      int `yaml:"batch_chars"`
		SummaryChars    int `yaml:"summary_chars"`
		ExcerptComments int `yaml:"excerpt_comments"`
		CommentChars    int `yaml:"comment_chars"`
	} `yaml:"limits"`
}

// LoadSettings loads settings from .reddit-analysis/settings.yaml, falling
// back to the embedded defaults for any field the file does not set.
func LoadSettings() (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}

	settingsPath := filepath.Join(defaultConfigDir, "settings.yaml")
	data, err := os.ReadFile(settingsPath)
	if os.IsNotExist(err) {
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", settingsPath, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	if settings.BatchSize < 1 {
		log.Printf("Warning: batch_size is %d, defaulting to %d", settings.BatchSize, defaultBatchSize)
		settings.BatchSize = defaultBatchSize
	}

	return &settings, nil
}
