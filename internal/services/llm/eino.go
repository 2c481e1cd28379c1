package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatModelProvider adapts an eino chat model to Provider.
type chatModelProvider struct {
	name  string
	model model.BaseChatModel
}

func newOllamaProvider(ctx context.Context, cfg Config) (*chatModelProvider, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	baseURL = NormalizeOllamaURL(baseURL)
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("ollama: model required")
	}
	chatModel, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   strings.TrimSpace(cfg.Model),
		Timeout: secondsOrZero(cfg.TimeoutSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: create chat model: %w", err)
	}
	return &chatModelProvider{name: string(KindOllama), model: chatModel}, nil
}

func newOpenAIProvider(ctx context.Context, cfg Config) (*chatModelProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai: model required")
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		BaseURL: strings.TrimSpace(cfg.BaseURL),
		Model:   strings.TrimSpace(cfg.Model),
		Timeout: secondsOrZero(cfg.TimeoutSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create chat model: %w", err)
	}
	return &chatModelProvider{name: string(KindOpenAI), model: chatModel}, nil
}

func secondsOrZero(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Complete runs one Generate call. The request model is fixed when the
// chat model is built, so req.Model is informational here.
func (p *chatModelProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return "", fmt.Errorf("%s complete: user prompt required", p.name)
	}
	messages := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(req.SystemMessage) != "" {
		messages = append(messages, schema.SystemMessage(req.SystemMessage))
	}
	messages = append(messages, schema.UserMessage(req.UserPrompt))

	opts := []model.Option{model.WithTemperature(float32(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	resp, err := p.model.Generate(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s complete: %w", p.name, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%s complete: empty content", p.name)
	}
	return strings.TrimSpace(resp.Content), nil
}
