package config

import (
	"errors"
	"fmt"
	"strings"

	"convoy/internal/merge"
)

// Validate ensures the configuration is usable. Credentials are not
// required here: commands that need them check at the point of use so that
// offline commands such as merge keep working without them.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateSlack(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case providerOpenRouter, providerOllama, providerOpenAI:
	default:
		return fmt.Errorf("llm.provider %q is not supported (supported: openrouter, ollama, openai)", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.max_tokens must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	cfg := c.Extraction
	if err := ensurePositiveMap(map[string]int{
		"extraction.max_tasks_per_thread": cfg.MaxTasksPerThread,
		"extraction.infer_max_ids":        cfg.InferMaxIDs,
	}); err != nil {
		return err
	}
	if cfg.MinOverlapTokens < 0 {
		return errors.New("extraction.min_overlap_tokens must be >= 0")
	}
	if cfg.InferMinOverlapTokens < 0 {
		return errors.New("extraction.infer_min_overlap_tokens must be >= 0")
	}
	if cfg.MinOverlapRatio < 0 || cfg.MinOverlapRatio > 1 {
		return errors.New("extraction.min_overlap_ratio must be between 0 and 1")
	}
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		return errors.New("extraction.fuzzy_threshold must be in (0, 1]")
	}
	if _, ok := merge.ParseStrategy(cfg.MergeStrategy); !ok {
		names := make([]string, 0, 3)
		for _, s := range merge.Strategies() {
			names = append(names, string(s))
		}
		return fmt.Errorf("extraction.merge_strategy %q is not supported (supported: %s)", cfg.MergeStrategy, strings.Join(names, ", "))
	}
	return nil
}

func (c *Config) validateSlack() error {
	if c.Slack.RequestsPerSecond < 0 {
		return errors.New("slack.requests_per_second must be positive")
	}
	if c.Slack.WorkspaceURL != "" && strings.ContainsAny(c.Slack.WorkspaceURL, " \t") {
		return errors.New("slack.workspace_url must not contain whitespace")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported (supported: debug, info, warn, error)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
