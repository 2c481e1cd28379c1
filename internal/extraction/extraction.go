package extraction

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"convoy/internal/grounding"
	"convoy/internal/logging"
	"convoy/internal/parser"
	"convoy/internal/scoring"
	"convoy/internal/services/llm"
	"convoy/internal/task"
	"convoy/internal/thread"
)

const (
	DefaultMaxTasksPerThread = 3
	DefaultMaxTokens         = 3000
)

var prReviewPattern = regexp.MustCompile(`(?i)\breview\b[\s\S]{0,40}\b(pr|pull request)\b|\b(pr|pull request)\b[\s\S]{0,40}\breview\b|\bcode review\b`)

// IsPRReview reports whether a candidate is a code or pull request review
// chore. Those are routine and never become tasks.
func IsPRReview(c task.Candidate) bool {
	return prReviewPattern.MatchString(c.Title + "\n" + c.Description)
}

// Options holds extractor-wide settings. Zero values select defaults.
type Options struct {
	Grounding         grounding.Options
	Infer             grounding.InferOptions
	MaxTasksPerThread int
	Temperature       float64
	MaxTokens         int
}

// DefaultOptions returns the thresholds and generation settings used when
// nothing is configured.
func DefaultOptions() Options {
	return Options{
		Grounding:         grounding.DefaultOptions(),
		Infer:             grounding.DefaultInferOptions(),
		MaxTasksPerThread: DefaultMaxTasksPerThread,
		MaxTokens:         DefaultMaxTokens,
	}
}

// Request carries the per-call model and prompt customization. Empty
// strings select the built-in text.
type Request struct {
	Model                string
	SystemPrompt         string
	GroundingRules       string
	DefaultSystemMessage string
	ExamplesCriteria     string
	PromptTemplate       string
	// Temperature overrides Options.Temperature when set.
	Temperature *float64
	MaxTokens   int
}

// Stats counts what each stage did to the parsed candidates.
type Stats struct {
	Parsed              int `json:"parsed"`
	FilteredPRReview    int `json:"filteredPRReview"`
	RepairedEvidence    int `json:"repairedEvidence"`
	FilteredBadEvidence int `json:"filteredBadEvidence"`
	FilteredNotGrounded int `json:"filteredNotGrounded"`
	Kept                int `json:"kept"`
	Returned            int `json:"returned"`
}

// Result is the outcome of one thread extraction.
type Result struct {
	ThreadID      string           `json:"threadId"`
	Tasks         []task.Candidate `json:"tasks"`
	Stats         Stats            `json:"stats"`
	ParseStrategy string           `json:"parseStrategy,omitempty"`
}

// Extractor runs single-thread extractions against one provider. It holds
// no per-call state and may be shared.
type Extractor struct {
	provider llm.Provider
	opts     Options
	logger   *slog.Logger
}

// New builds an Extractor. Zero-valued option fields fall back to
// DefaultOptions.
func New(provider llm.Provider, opts Options, logger *slog.Logger) *Extractor {
	defaults := DefaultOptions()
	if opts.Grounding == (grounding.Options{}) {
		opts.Grounding = defaults.Grounding
	}
	if opts.Infer.MaxIDs <= 0 {
		opts.Infer = defaults.Infer
	}
	if opts.MaxTasksPerThread <= 0 {
		opts.MaxTasksPerThread = defaults.MaxTasksPerThread
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	return &Extractor{
		provider: provider,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "extraction"),
	}
}

// ExtractThreadTasks asks the model for tasks in th and returns the ones that
// survive filtering, best first. A reply that cannot be parsed yields no
// tasks, not an error.
func (e *Extractor) ExtractThreadTasks(ctx context.Context, th thread.Thread, req Request) (Result, error) {
	safe := th.Sanitized()
	result := Result{ThreadID: safe.ThreadID, Tasks: []task.Candidate{}}
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldThreadID, safe.ThreadID))

	if e.provider == nil {
		return result, &ConfigError{Field: "provider", Message: "no llm provider configured"}
	}
	prompt, err := RenderPrompt(req.PromptTemplate, req.ExamplesCriteria, safe)
	if err != nil {
		return result, err
	}
	completion := llm.CompletionRequest{
		SystemMessage: SystemMessage(req.GroundingRules, req.SystemPrompt, req.DefaultSystemMessage),
		UserPrompt:    prompt,
		Model:         strings.TrimSpace(req.Model),
		Temperature:   e.opts.Temperature,
		MaxTokens:     e.opts.MaxTokens,
	}
	if req.Temperature != nil {
		completion.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		completion.MaxTokens = req.MaxTokens
	}

	logger.Debug("extraction request",
		logging.String("model", completion.Model),
		logging.Float64("temperature", completion.Temperature),
		logging.Int("max_tokens", completion.MaxTokens),
		logging.Int("messages", len(safe.Messages)),
		logging.Int("prompt_chars", len(prompt)),
	)
	started := time.Now()
	raw, err := e.provider.Complete(ctx, completion)
	if err != nil {
		classified := classifyProviderError(err)
		event := "extraction_failed"
		if errors.Is(classified, ErrTimedOut) {
			event = "extraction_timed_out"
		}
		logging.ErrorWithContext(logger, "extraction request failed", event,
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(classified),
			logging.String(logging.FieldErrorHint, "check provider credentials, model name and connectivity"),
		)
		return result, classified
	}

	parsed := parser.Parse(raw)
	if !parsed.OK {
		logger.Debug("response not parseable", logging.String("reason", parsed.Reason), logging.Int("response_chars", len(raw)))
	}
	result.ParseStrategy = parsed.Strategy
	tasks, stats := e.filter(parsed.Tasks, safe)
	result.Tasks = tasks
	result.Stats = stats

	logger.Info("extraction stage counts",
		logging.String(logging.FieldEventType, "extraction_summary"),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("parse_strategy", parsed.Strategy),
		logging.Int("parsed", stats.Parsed),
		logging.Int("kept", stats.Kept),
		logging.Int("returned", stats.Returned),
		logging.Int("pr_review", stats.FilteredPRReview),
		logging.Int("repaired_evidence", stats.RepairedEvidence),
		logging.Int("bad_evidence", stats.FilteredBadEvidence),
		logging.Int("not_grounded", stats.FilteredNotGrounded),
	)
	return result, nil
}

func (e *Extractor) filter(candidates []task.Candidate, th thread.Thread) ([]task.Candidate, Stats) {
	stats := Stats{Parsed: len(candidates)}
	sourceText := th.Text()

	kept := make([]task.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if IsPRReview(c) {
			stats.FilteredPRReview++
			continue
		}
		c = normalize(c, th.ThreadID)
		if !grounding.ValidateEvidence(c, th) {
			inferred := grounding.InferEvidenceMessageIDs(c, th, e.opts.Infer)
			if len(inferred) == 0 {
				stats.FilteredBadEvidence++
				continue
			}
			c.Evidence.MessageIDs = inferred
			stats.RepairedEvidence++
		}
		if !grounding.IsGrounded(c, sourceText, e.opts.Grounding) {
			stats.FilteredNotGrounded++
			continue
		}
		kept = append(kept, c)
	}
	stats.Kept = len(kept)

	ranked := rank(kept)
	if len(ranked) > e.opts.MaxTasksPerThread {
		ranked = ranked[:e.opts.MaxTasksPerThread]
	}
	stats.Returned = len(ranked)
	return ranked, stats
}

// normalize pins evidence to the owning thread and drops blank ids. The
// model's own threadId is not trusted.
func normalize(c task.Candidate, threadID string) task.Candidate {
	ids := []string{}
	if c.Evidence != nil {
		for _, id := range c.Evidence.MessageIDs {
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return task.Candidate{
		Title:       c.Title,
		Description: c.Description,
		Evidence:    &task.Evidence{ThreadID: threadID, MessageIDs: ids},
	}
}

type scoredCandidate struct {
	candidate task.Candidate
	score     int
}

func rank(candidates []task.Candidate) []task.Candidate {
	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{candidate: c, score: scoring.Score(c.Title, c.Description)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	out := make([]task.Candidate, len(scored))
	for i, s := range scored {
		out[i] = s.candidate
	}
	return out
}
