package config

const (
	defaultConfigPath            = "~/.config/convoy/config.toml"
	defaultDataDir               = "~/.local/share/convoy"
	defaultLogDir                = "~/.local/share/convoy/logs"
	defaultAPIBind               = "127.0.0.1:3000"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultLLMProvider           = providerOpenRouter
	defaultLLMModel              = "google/gemini-2.5-flash"
	defaultLLMReferer            = "https://github.com/convoy"
	defaultLLMTitle              = "Convoy Task Extraction"
	defaultOllamaURL             = "http://localhost:11434"
	defaultLLMMaxTokens          = 3000
	defaultLLMTimeoutSeconds     = 120
	defaultMaxTasksPerThread     = 3
	defaultMinOverlapRatio       = 0.06
	defaultMinOverlapTokens      = 2
	defaultInferMaxIDs           = 3
	defaultInferMinOverlapTokens = 1
	defaultMergeStrategy         = "title-normalize"
	defaultFuzzyThreshold        = 0.8
	defaultSlackAPIRoot          = "https://slack.com/api"
	defaultSlackRequestsPerSec   = 1.0
)

const (
	providerOpenRouter = "openrouter"
	providerOllama     = "ollama"
	providerOpenAI     = "openai"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			OllamaURL:      defaultOllamaURL,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Extraction: Extraction{
			MaxTasksPerThread:     defaultMaxTasksPerThread,
			MinOverlapRatio:       defaultMinOverlapRatio,
			MinOverlapTokens:      defaultMinOverlapTokens,
			InferMaxIDs:           defaultInferMaxIDs,
			InferMinOverlapTokens: defaultInferMinOverlapTokens,
			MergeStrategy:         defaultMergeStrategy,
			FuzzyThreshold:        defaultFuzzyThreshold,
		},
		Slack: Slack{
			APIRoot:           defaultSlackAPIRoot,
			RequestsPerSecond: defaultSlackRequestsPerSec,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
