package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"convoy/internal/store"
)

type promptListResponse struct {
	Success bool           `json:"success"`
	Prompts []store.Prompt `json:"prompts"`
	Count   int            `json:"count"`
}

type promptResponse struct {
	Success bool          `json:"success"`
	Prompt  *store.Prompt `json:"prompt"`
}

type promptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"promptTemplate"`
	IsDefault   bool   `json:"isDefault"`
	CreatedBy   string `json:"createdBy"`
}

func (r promptRequest) input() store.PromptInput {
	return store.PromptInput{
		Name:        r.Name,
		Description: r.Description,
		Template:    r.Template,
		IsDefault:   r.IsDefault,
		CreatedBy:   r.CreatedBy,
	}
}

func (s *Server) handleListPrompts(c echo.Context) error {
	prompts, err := s.store.ListPrompts(c.Request().Context(), store.PromptFilter{
		Kind:      store.PromptKind(c.QueryParam("kind")),
		CreatedBy: c.QueryParam("createdBy"),
	})
	if err != nil {
		return err
	}
	if prompts == nil {
		prompts = []store.Prompt{}
	}
	return c.JSON(http.StatusOK, promptListResponse{Success: true, Prompts: prompts, Count: len(prompts)})
}

func (s *Server) handleGetPrompt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	prompt, err := s.store.GetPrompt(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, promptResponse{Success: true, Prompt: prompt})
}

func (s *Server) handleCreatePrompt(c echo.Context) error {
	var body promptRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	prompt, err := s.store.CreatePrompt(c.Request().Context(), body.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, promptResponse{Success: true, Prompt: prompt})
}

func (s *Server) handleUpdatePrompt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body promptRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	prompt, err := s.store.UpdatePrompt(c.Request().Context(), id, body.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, promptResponse{Success: true, Prompt: prompt})
}

func (s *Server) handleDeletePrompt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.store.DeletePrompt(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteResponse{Success: true, ID: id})
}

func (s *Server) handleSetDefaultPrompt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	prompt, err := s.store.SetDefaultPrompt(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, promptResponse{Success: true, Prompt: prompt})
}
