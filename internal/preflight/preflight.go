package preflight

import (
	"context"
	"net/http"
	"strings"

	"convoy/internal/config"
	"convoy/internal/services/slack"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for cfg. The Slack check is
// skipped when no token is configured, since sync is the only caller.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckLLM(ctx, cfg.GetLLM(), client),
	}
	if strings.TrimSpace(cfg.Slack.Token) != "" {
		opts := []slack.Option{}
		if client != nil {
			opts = append(opts, slack.WithHTTPClient(client))
		}
		results = append(results, CheckSlack(ctx, slack.New(slack.Config{
			Token:   cfg.Slack.Token,
			DCookie: cfg.Slack.DCookie,
			APIRoot: cfg.Slack.APIRoot,
		}, opts...)))
	}
	return results
}
