package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"convoy/internal/config"
	"convoy/internal/services/llm"
	"convoy/internal/services/slack"
)

// CheckLLM verifies the configured model backend. Hosted providers only need
// an API key; probing them would spend tokens. For Ollama the server must
// answer and have the configured model installed.
func CheckLLM(ctx context.Context, cfg config.LLMConfig, client *http.Client) Result {
	name := "LLM (" + cfg.Provider + ")"
	kind, err := llm.ParseKind(cfg.Provider)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if kind != llm.KindOllama {
		if cfg.APIKey == "" {
			return Result{Name: name, Detail: "API key missing (set llm.api_key)"}
		}
		return Result{Name: name, Passed: true, Detail: "API key set, model " + cfg.Model}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	models, err := llm.ListOllamaModels(checkCtx, client, cfg.BaseURL)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if cfg.Model != "" && !slices.Contains(models, cfg.Model) {
		return Result{Name: name, Detail: fmt.Sprintf("model %q not installed (%d available)", cfg.Model, len(models))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable, %d models", len(models))}
}

// CheckSlack verifies that the Slack credentials authenticate.
func CheckSlack(ctx context.Context, client *slack.Client) Result {
	const name = "Slack"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	identity, err := client.AuthTest(checkCtx)
	if err != nil {
		if slack.IsAPIError(err, "invalid_auth") || slack.IsAPIError(err, "not_authed") {
			return Result{Name: name, Detail: "auth failed (check slack.token and slack.d_cookie)"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("workspace %s (%s)", identity.Team, identity.TeamID)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return strings.TrimSpace(err.Error())
}
