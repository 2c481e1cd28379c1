package testsupport

import (
	"path/filepath"
	"testing"

	"convoy/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = "test"
	cfgVal.Slack.Token = "xoxc-test"
	cfgVal.Slack.WorkspaceURL = "https://acme.slack.com"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkspaceURL overrides the Slack workspace URL used for permalinks.
func WithWorkspaceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Slack.WorkspaceURL = url
	}
}

// WithSlackAPIRoot points the Slack client at a test server.
func WithSlackAPIRoot(root string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Slack.APIRoot = root
		b.cfg.Slack.RequestsPerSecond = 0
	}
}

// WithLLMBaseURL points the OpenRouter provider at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
