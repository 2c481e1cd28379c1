package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeExtraction()
	c.normalizeSlack()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case providerOpenRouter:
			c.LLM.APIKey = envValue("OPENROUTER_API_KEY")
		case providerOpenAI:
			c.LLM.APIKey = envValue("OPENAI_API_KEY")
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	c.LLM.OllamaURL = strings.TrimSpace(c.LLM.OllamaURL)
	if value := envValue("OLLAMA_URL"); value != "" && (c.LLM.OllamaURL == "" || c.LLM.OllamaURL == defaultOllamaURL) {
		c.LLM.OllamaURL = value
	}
	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = defaultOllamaURL
	}
	c.LLM.OllamaURL = strings.TrimRight(c.LLM.OllamaURL, "/")
	if !strings.HasPrefix(c.LLM.OllamaURL, "http://") && !strings.HasPrefix(c.LLM.OllamaURL, "https://") {
		c.LLM.OllamaURL = "http://" + c.LLM.OllamaURL
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds < 0 {
		c.LLM.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeExtraction() {
	c.Extraction.MergeStrategy = strings.TrimSpace(c.Extraction.MergeStrategy)
	if c.Extraction.MergeStrategy == "" {
		c.Extraction.MergeStrategy = defaultMergeStrategy
	}
	if c.Extraction.MaxTasksPerThread == 0 {
		c.Extraction.MaxTasksPerThread = defaultMaxTasksPerThread
	}
	if c.Extraction.InferMaxIDs == 0 {
		c.Extraction.InferMaxIDs = defaultInferMaxIDs
	}
	if c.Extraction.FuzzyThreshold == 0 {
		c.Extraction.FuzzyThreshold = defaultFuzzyThreshold
	}
}

func (c *Config) normalizeSlack() {
	if c.Slack.Token == "" {
		c.Slack.Token = envValue("SLACK_TOKEN")
	}
	c.Slack.Token = strings.TrimSpace(c.Slack.Token)
	if c.Slack.DCookie == "" {
		c.Slack.DCookie = envValue("SLACK_D_COOKIE")
	}
	c.Slack.DCookie = strings.TrimSpace(c.Slack.DCookie)
	c.Slack.WorkspaceURL = strings.TrimRight(strings.TrimSpace(c.Slack.WorkspaceURL), "/")
	c.Slack.APIRoot = strings.TrimRight(strings.TrimSpace(c.Slack.APIRoot), "/")
	if c.Slack.APIRoot == "" {
		c.Slack.APIRoot = defaultSlackAPIRoot
	}
	if c.Slack.RequestsPerSecond == 0 {
		c.Slack.RequestsPerSecond = defaultSlackRequestsPerSec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func envValue(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
