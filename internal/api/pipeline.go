package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"convoy/internal/extraction"
	"convoy/internal/merge"
	"convoy/internal/task"
	"convoy/internal/taskgen"
	"convoy/internal/thread"
)

type rangeRequest struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

func (r rangeRequest) prepareRequest() (taskgen.PrepareRequest, error) {
	if strings.TrimSpace(r.ChannelID) == "" {
		return taskgen.PrepareRequest{}, badRequest("channelId is required")
	}
	if r.StartDate == "" || r.EndDate == "" {
		return taskgen.PrepareRequest{}, badRequest("startDate and endDate are required")
	}
	start, err := taskgen.ParseDate(r.StartDate)
	if err != nil {
		return taskgen.PrepareRequest{}, err
	}
	end, err := taskgen.ParseDate(r.EndDate)
	if err != nil {
		return taskgen.PrepareRequest{}, err
	}
	return taskgen.PrepareRequest{
		ChannelID:   strings.TrimSpace(r.ChannelID),
		ChannelName: strings.TrimSpace(r.ChannelName),
		Start:       start,
		End:         end,
	}, nil
}

type prepareResponse struct {
	Success bool `json:"success"`
	taskgen.Prepared
}

func (s *Server) handlePrepare(c echo.Context) error {
	var body rangeRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	req, err := body.prepareRequest()
	if err != nil {
		return err
	}
	prepared, err := s.svc.Prepare(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prepareResponse{Success: true, Prepared: prepared})
}

type extractThreadRequest struct {
	Thread               *thread.Thread `json:"thread"`
	Provider             string         `json:"provider"`
	OllamaURL            string         `json:"ollamaUrl"`
	Model                string         `json:"model"`
	SystemPrompt         string         `json:"systemPrompt"`
	ExamplesCriteria     string         `json:"examplesCriteria"`
	PromptTemplate       string         `json:"promptTemplate"`
	GroundingRules       string         `json:"requiredGroundingRules"`
	DefaultSystemMessage string         `json:"defaultSystemMessage"`
	Temperature          *float64       `json:"temperature"`
	MaxTokens            int            `json:"maxTokens"`
}

type extractThreadResponse struct {
	Success bool `json:"success"`
	extraction.Result
}

func (s *Server) handleExtractThread(c echo.Context) error {
	var body extractThreadRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	if body.Thread == nil {
		return badRequest("thread is required")
	}
	ctx := c.Request().Context()
	extractor, err := s.svc.Extractor(ctx, taskgen.ProviderOverride{Provider: body.Provider, OllamaURL: body.OllamaURL})
	if err != nil {
		return err
	}
	req := s.svc.BaseRequest()
	overlay(&req.Model, body.Model)
	overlay(&req.SystemPrompt, body.SystemPrompt)
	overlay(&req.ExamplesCriteria, body.ExamplesCriteria)
	overlay(&req.PromptTemplate, body.PromptTemplate)
	overlay(&req.GroundingRules, body.GroundingRules)
	overlay(&req.DefaultSystemMessage, body.DefaultSystemMessage)
	req.Temperature = body.Temperature
	if body.MaxTokens > 0 {
		req.MaxTokens = body.MaxTokens
	}

	result, err := extractor.ExtractThreadTasks(ctx, *body.Thread, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, extractThreadResponse{Success: true, Result: result})
}

func overlay(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

type mergeRequest struct {
	Candidates json.RawMessage `json:"candidates"`
	Strategy   string          `json:"strategy"`
}

type mergeResponse struct {
	Success  bool          `json:"success"`
	Strategy string        `json:"strategy"`
	Tasks    []task.Merged `json:"tasks"`
	Count    int           `json:"count"`
}

func (s *Server) handleMerge(c echo.Context) error {
	var body mergeRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	if len(body.Candidates) == 0 {
		return badRequest("candidates must be an array")
	}
	candidates, err := task.DecodeCandidates(body.Candidates)
	if err != nil {
		return badRequest("candidates must be an array")
	}
	opts, err := s.svc.MergeOptions(body.Strategy)
	if err != nil {
		return err
	}
	merged, err := merge.MergeWithOptions(candidates, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mergeResponse{
		Success:  true,
		Strategy: string(opts.Strategy),
		Tasks:    merged,
		Count:    len(merged),
	})
}

type generateRequest struct {
	rangeRequest
	Provider         string `json:"provider"`
	OllamaURL        string `json:"ollamaUrl"`
	Model            string `json:"model"`
	Strategy         string `json:"strategy"`
	PromptID         int64  `json:"promptId"`
	SystemPrompt     string `json:"systemPrompt"`
	ExamplesCriteria string `json:"examplesCriteria"`
	Save             bool   `json:"save"`
}

type generateResponse struct {
	Success bool `json:"success"`
	taskgen.GenerateResult
	DurationMS int64 `json:"durationMs"`
}

func (s *Server) handleGenerate(c echo.Context) error {
	var body generateRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	prepare, err := body.prepareRequest()
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := s.svc.Generate(c.Request().Context(), taskgen.GenerateRequest{
		PrepareRequest:   prepare,
		Provider:         taskgen.ProviderOverride{Provider: body.Provider, OllamaURL: body.OllamaURL},
		Model:            body.Model,
		Strategy:         body.Strategy,
		PromptID:         body.PromptID,
		SystemPrompt:     body.SystemPrompt,
		ExamplesCriteria: body.ExamplesCriteria,
		Save:             body.Save,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, generateResponse{
		Success:        true,
		GenerateResult: result,
		DurationMS:     time.Since(start).Milliseconds(),
	})
}
