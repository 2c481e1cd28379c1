package taskgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"convoy/internal/config"
	"convoy/internal/extraction"
	"convoy/internal/grounding"
	"convoy/internal/logging"
	"convoy/internal/merge"
	"convoy/internal/services"
	"convoy/internal/services/llm"
	"convoy/internal/services/slack"
	"convoy/internal/store"
)

// ProviderFactory builds an LLM backend. Tests swap it for a fake.
type ProviderFactory func(ctx context.Context, kind llm.Kind, cfg llm.Config) (llm.Provider, error)

// Service runs the chat-to-tasks pipeline: sync messages from Slack, arrange
// stored messages into threads, extract tasks per thread, merge and save.
type Service struct {
	cfg         *config.Config
	store       *store.Store
	slack       *slack.Client
	newProvider ProviderFactory
	logger      *slog.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithProviderFactory replaces llm.NewProvider.
func WithProviderFactory(factory ProviderFactory) Option {
	return func(s *Service) {
		if factory != nil {
			s.newProvider = factory
		}
	}
}

// WithSlackClient replaces the Slack client built from configuration.
func WithSlackClient(client *slack.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.slack = client
		}
	}
}

// New builds a Service over an open store.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	svc := &Service{
		cfg:         cfg,
		store:       st,
		newProvider: llm.NewProvider,
		logger:      logging.NewComponentLogger(logger, "taskgen"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.slack == nil {
		svc.slack = slack.New(slack.Config{
			Token:             cfg.Slack.Token,
			DCookie:           cfg.Slack.DCookie,
			APIRoot:           cfg.Slack.APIRoot,
			RequestsPerSecond: cfg.Slack.RequestsPerSecond,
		}, slack.WithLogger(logger))
	}
	return svc
}

// Store exposes the backing store for callers that serve saved tasks and
// prompts directly.
func (s *Service) Store() *store.Store {
	return s.store
}

// ProviderOverride selects a backend other than the configured one for a
// single call. Blank fields keep the configured values.
type ProviderOverride struct {
	Provider  string
	OllamaURL string
}

// ExtractionOptions maps configuration onto extractor settings.
func ExtractionOptions(cfg *config.Config) extraction.Options {
	return extraction.Options{
		Grounding: grounding.Options{
			MinOverlapRatio:  cfg.Extraction.MinOverlapRatio,
			MinOverlapTokens: cfg.Extraction.MinOverlapTokens,
		},
		Infer: grounding.InferOptions{
			MaxIDs:           cfg.Extraction.InferMaxIDs,
			MinOverlapTokens: cfg.Extraction.InferMinOverlapTokens,
		},
		MaxTasksPerThread: cfg.Extraction.MaxTasksPerThread,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
	}
}

// Extractor builds an extractor for the configured provider. An override
// may switch to a local Ollama server; hosted providers other than the
// configured one are rejected because their credentials are not known.
func (s *Service) Extractor(ctx context.Context, override ProviderOverride) (*extraction.Extractor, error) {
	resolved := s.cfg.GetLLM()
	configured, err := llm.ParseKind(resolved.Provider)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "taskgen", "select provider", err.Error(), nil)
	}
	kind := configured
	if p := strings.TrimSpace(override.Provider); p != "" {
		if kind, err = llm.ParseKind(p); err != nil {
			return nil, services.Wrap(services.ErrValidation, "taskgen", "select provider", err.Error(), nil)
		}
	}
	if kind != configured && kind != llm.KindOllama {
		return nil, services.Wrap(services.ErrValidation, "taskgen", "select provider",
			fmt.Sprintf("provider %q is not configured (configured: %s)", kind, configured), nil)
	}
	llmCfg := llm.Config{
		APIKey:         resolved.APIKey,
		BaseURL:        resolved.BaseURL,
		Model:          resolved.Model,
		Referer:        resolved.Referer,
		Title:          resolved.Title,
		TimeoutSeconds: resolved.TimeoutSeconds,
	}
	if kind == llm.KindOllama {
		llmCfg.BaseURL = s.cfg.LLM.OllamaURL
		if u := strings.TrimSpace(override.OllamaURL); u != "" {
			llmCfg.BaseURL = llm.NormalizeOllamaURL(u)
		}
	}
	provider, err := s.newProvider(ctx, kind, llmCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "taskgen", "build provider", string(kind), err)
	}
	return extraction.New(provider, ExtractionOptions(s.cfg), s.logger), nil
}

// BaseRequest returns the extraction request built from configuration:
// model and prompt customization.
func (s *Service) BaseRequest() extraction.Request {
	return extraction.Request{
		Model:                s.cfg.LLM.Model,
		SystemPrompt:         s.cfg.Extraction.SystemPrompt,
		GroundingRules:       s.cfg.Extraction.GroundingRules,
		DefaultSystemMessage: s.cfg.Extraction.DefaultSystemMessage,
		ExamplesCriteria:     s.cfg.Extraction.ExamplesCriteria,
	}
}

// MergeOptions returns the merge settings for strategy, falling back to the
// configured strategy when blank.
func (s *Service) MergeOptions(strategy string) (merge.Options, error) {
	name := strings.TrimSpace(strategy)
	if name == "" {
		name = s.cfg.Extraction.MergeStrategy
	}
	parsed, ok := merge.ParseStrategy(name)
	if !ok {
		return merge.Options{}, services.Wrap(services.ErrValidation, "taskgen", "merge", fmt.Sprintf("unknown merge strategy %q", name), nil)
	}
	return merge.Options{Strategy: parsed, FuzzyThreshold: s.cfg.Extraction.FuzzyThreshold}, nil
}

// Stats summarizes what the database holds.
type Stats struct {
	Messages      int       `json:"messages"`
	Users         int       `json:"users"`
	Tasks         int       `json:"tasks"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	DatabaseBytes int64     `json:"databaseBytes"`
	DatabasePath  string    `json:"databasePath"`
}

// Stats counts stored messages, users and saved tasks.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		out Stats
		err error
	)
	if out.Messages, err = s.store.CountMessages(ctx); err != nil {
		return out, err
	}
	if out.Users, err = s.store.CountUsers(ctx); err != nil {
		return out, err
	}
	if out.Tasks, err = s.store.CountTasks(ctx); err != nil {
		return out, err
	}
	if out.LastMessageAt, err = s.store.LastMessageTime(ctx); err != nil {
		return out, err
	}
	out.DatabasePath = s.store.Path()
	if info, statErr := os.Stat(out.DatabasePath); statErr == nil {
		out.DatabaseBytes = info.Size()
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return out, fmt.Errorf("stat database: %w", statErr)
	}
	return out, nil
}
