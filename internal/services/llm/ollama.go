package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const ollamaListTimeout = 10 * time.Second

// NormalizeOllamaURL adds an http scheme to bare host:port values and drops
// trailing slashes.
func NormalizeOllamaURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	return trimmed
}

// ListOllamaModels returns the names of the models installed on the Ollama
// server at baseURL. A nil client uses a default one with a short timeout.
func ListOllamaModels(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	base := NormalizeOllamaURL(baseURL)
	if base == "" {
		return nil, fmt.Errorf("ollama models: url required")
	}
	if client == nil {
		client = &http.Client{Timeout: ollamaListTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama models: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama models: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama models: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Message:    upstreamErrorMessage(body),
		}
	}
	var payload struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("ollama models: decode response: %w", err)
	}
	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		if name := firstNonEmpty(m.Name, m.Model); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
