package taskgen

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"convoy/internal/extraction"
	"convoy/internal/logging"
	"convoy/internal/merge"
	"convoy/internal/services"
	"convoy/internal/store"
	"convoy/internal/task"
)

// GenerateRequest runs extraction over a prepared range.
type GenerateRequest struct {
	PrepareRequest
	Provider ProviderOverride
	// Model overrides llm.model when set.
	Model string
	// Strategy overrides extraction.merge_strategy when set.
	Strategy string
	// PromptID selects a stored prompt; zero uses the default prompt.
	PromptID         int64
	SystemPrompt     string
	ExamplesCriteria string
	// Save persists the merged tasks after the run.
	Save bool
}

// GenerateResult is the merged outcome of a run.
type GenerateResult struct {
	RunID               string        `json:"runId"`
	Strategy            string        `json:"strategy"`
	Tasks               []task.Merged `json:"tasks"`
	ThreadsProcessed    int           `json:"threadsProcessed"`
	ThreadsFailed       int           `json:"threadsFailed"`
	MessagesAnalyzed    int           `json:"messagesAnalyzed"`
	CandidatesExtracted int           `json:"candidatesExtracted"`
	Saved               []store.Task  `json:"saved,omitempty"`
}

// Generate prepares the range, extracts tasks from every thread one at a
// time and merges the candidates. A thread whose extraction fails is logged
// and skipped; configuration errors and cancellation stop the run.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	result := GenerateResult{RunID: uuid.NewString(), Tasks: []task.Merged{}}
	ctx = services.WithRunID(ctx, result.RunID)
	ctx = services.WithChannelID(ctx, req.ChannelID)
	logger := logging.WithContext(ctx, s.logger)

	mergeOpts, err := s.MergeOptions(req.Strategy)
	if err != nil {
		return result, err
	}
	result.Strategy = string(mergeOpts.Strategy)

	prepared, err := s.Prepare(ctx, req.PrepareRequest)
	if err != nil {
		return result, err
	}
	extractReq, err := s.requestFor(ctx, req)
	if err != nil {
		return result, err
	}
	extractor, err := s.Extractor(ctx, req.Provider)
	if err != nil {
		return result, err
	}

	threads := prepared.All()
	logger.Info("task generation started",
		logging.String(logging.FieldEventType, "generate_started"),
		logging.Int("threads", len(threads)),
		logging.String("model", extractReq.Model),
		logging.String("strategy", result.Strategy),
	)
	started := time.Now()
	candidates := []task.Candidate{}
	for _, th := range threads {
		result.MessagesAnalyzed += len(th.Messages)
		threadCtx := services.WithThreadID(ctx, th.ThreadID)
		extracted, err := extractor.ExtractThreadTasks(threadCtx, th, extractReq)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			if errors.Is(err, services.ErrConfiguration) {
				return result, err
			}
			result.ThreadsFailed++
			logging.WarnWithContext(logging.WithContext(threadCtx, s.logger), "thread extraction skipped", "thread_skipped",
				logging.Error(err),
				logging.String(logging.FieldImpact, "tasks from this thread are missing from the run"),
			)
			continue
		}
		result.ThreadsProcessed++
		candidates = append(candidates, extracted.Tasks...)
	}
	result.CandidatesExtracted = len(candidates)

	merged, err := merge.MergeWithOptions(candidates, mergeOpts)
	if err != nil {
		return result, err
	}
	result.Tasks = merged

	if req.Save && len(merged) > 0 {
		saved, err := s.SaveMerged(ctx, SaveRequest{
			ChannelID:   req.ChannelID,
			ChannelName: req.ChannelName,
			Model:       extractReq.Model,
		}, merged)
		if err != nil {
			return result, err
		}
		result.Saved = saved
	}

	logger.Info("task generation finished",
		logging.String(logging.FieldEventType, "generate_complete"),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("threads_processed", result.ThreadsProcessed),
		logging.Int("threads_failed", result.ThreadsFailed),
		logging.Int("candidates", result.CandidatesExtracted),
		logging.Int("tasks", len(result.Tasks)),
		logging.Int("saved", len(result.Saved)),
	)
	return result, nil
}

// requestFor layers the stored prompt and the caller's overrides on top of
// the configured request.
func (s *Service) requestFor(ctx context.Context, req GenerateRequest) (extraction.Request, error) {
	out := s.BaseRequest()
	if m := strings.TrimSpace(req.Model); m != "" {
		out.Model = m
	}
	if req.SystemPrompt != "" {
		out.SystemPrompt = req.SystemPrompt
	}
	if req.ExamplesCriteria != "" {
		out.ExamplesCriteria = req.ExamplesCriteria
	}
	var (
		prompt *store.Prompt
		err    error
	)
	if req.PromptID > 0 {
		prompt, err = s.store.GetPrompt(ctx, req.PromptID)
	} else {
		prompt, err = s.store.DefaultPrompt(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return out, nil
		}
	}
	if err != nil {
		return out, err
	}
	out.PromptTemplate = prompt.Template
	return out, nil
}

// SaveRequest carries the channel and model recorded on saved tasks.
type SaveRequest struct {
	ChannelID   string
	ChannelName string
	Model       string
}

// SaveMerged stores each merged task, linking it to the first thread that
// produced it.
func (s *Service) SaveMerged(ctx context.Context, req SaveRequest, tasks []task.Merged) ([]store.Task, error) {
	saved := make([]store.Task, 0, len(tasks))
	for _, t := range tasks {
		var parent string
		if len(t.Sources) > 0 {
			parent = t.Sources[0].ThreadID
		}
		stored, err := s.store.SaveTask(ctx, store.NewTask{
			ChannelID:      req.ChannelID,
			ChannelName:    req.ChannelName,
			Model:          req.Model,
			Title:          t.Title,
			Description:    t.Description,
			ParentThreadID: parent,
		})
		if err != nil {
			return saved, err
		}
		saved = append(saved, *stored)
	}
	return saved, nil
}
