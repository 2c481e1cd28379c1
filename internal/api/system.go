package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"convoy/internal/services"
	"convoy/internal/services/llm"
	"convoy/internal/taskgen"
)

type healthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return services.Wrap(services.ErrExternal, "api", "health", "database unavailable", err)
	}
	return c.JSON(http.StatusOK, healthResponse{Success: true, Status: "ok"})
}

type statsResponse struct {
	Success bool          `json:"success"`
	Stats   taskgen.Stats `json:"stats"`
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResponse{Success: true, Stats: stats})
}

type syncRequest struct {
	rangeRequest
	IncludeBotMessages *bool `json:"includeBotMessages"`
}

type syncResponse struct {
	Success bool `json:"success"`
	taskgen.SyncResult
}

func (s *Server) handleSync(c echo.Context) error {
	var body syncRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	prepare, err := body.prepareRequest()
	if err != nil {
		return err
	}
	result, err := s.svc.Sync(c.Request().Context(), taskgen.SyncRequest{
		ChannelID:   prepare.ChannelID,
		ChannelName: prepare.ChannelName,
		Start:       prepare.Start,
		End:         prepare.End,
		IncludeBots: body.IncludeBotMessages,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, syncResponse{Success: true, SyncResult: result})
}

type ollamaModelsResponse struct {
	Success bool     `json:"success"`
	Models  []string `json:"models"`
	Count   int      `json:"count"`
}

func (s *Server) handleOllamaModels(c echo.Context) error {
	baseURL := strings.TrimSpace(c.QueryParam("ollamaUrl"))
	if baseURL == "" {
		return badRequest("ollamaUrl is required")
	}
	models, err := llm.ListOllamaModels(c.Request().Context(), s.ollamaClient, baseURL)
	if err != nil {
		return services.Wrap(services.ErrExternal, "api", "ollama models", baseURL, err)
	}
	if models == nil {
		models = []string{}
	}
	return c.JSON(http.StatusOK, ollamaModelsResponse{Success: true, Models: models, Count: len(models)})
}
