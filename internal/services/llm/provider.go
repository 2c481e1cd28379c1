package llm

import (
	"context"
	"fmt"
	"strings"
)

// Kind selects a provider backend.
type Kind string

const (
	KindOpenRouter Kind = "openrouter"
	KindOllama     Kind = "ollama"
	KindOpenAI     Kind = "openai"
)

// DefaultOllamaURL is where a local Ollama server listens out of the box.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultOpenRouterURL is the OpenRouter chat completions endpoint.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// ParseKind validates a provider name. Blank selects openrouter.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case "", KindOpenRouter:
		return KindOpenRouter, nil
	case KindOllama:
		return KindOllama, nil
	case KindOpenAI:
		return KindOpenAI, nil
	default:
		return "", fmt.Errorf("unsupported llm provider %q (supported: openrouter, ollama, openai)", value)
	}
}

// CompletionRequest is one chat exchange: a system message, a user prompt,
// and the sampling parameters for the reply.
type CompletionRequest struct {
	SystemMessage string
	UserPrompt    string
	Model         string
	Temperature   float64
	MaxTokens     int
}

// Provider returns the raw text a model produced for a request.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Config carries connection settings for every backend. Fields a backend
// does not use are ignored.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// NewProvider builds the backend for kind.
func NewProvider(ctx context.Context, kind Kind, cfg Config) (Provider, error) {
	switch kind {
	case KindOpenRouter, "":
		return NewClient(cfg), nil
	case KindOllama:
		return newOllamaProvider(ctx, cfg)
	case KindOpenAI:
		return newOpenAIProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", kind)
	}
}
