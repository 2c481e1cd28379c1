package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"convoy/internal/store"
)

type taskListResponse struct {
	Success bool         `json:"success"`
	Tasks   []store.Task `json:"tasks"`
	Count   int          `json:"count"`
}

type taskResponse struct {
	Success bool        `json:"success"`
	Task    *store.Task `json:"task"`
}

type saveTaskRequest struct {
	ChannelID      string `json:"channelId"`
	ChannelName    string `json:"channelName"`
	Model          string `json:"model"`
	Title          string `json:"taskTitle"`
	Description    string `json:"taskDescription"`
	ParentThreadID string `json:"parentThreadId"`
}

type updateTaskRequest struct {
	Title       *string `json:"taskTitle"`
	Description *string `json:"taskDescription"`
}

type deleteResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

func (s *Server) handleListTasks(c echo.Context) error {
	filter := store.TaskFilter{ChannelID: c.QueryParam("channelId")}
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return err
	}
	tasks, err := s.store.ListTasks(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return c.JSON(http.StatusOK, taskListResponse{Success: true, Tasks: tasks, Count: len(tasks)})
}

func (s *Server) handleSaveTask(c echo.Context) error {
	var body saveTaskRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	saved, err := s.store.SaveTask(c.Request().Context(), store.NewTask{
		ChannelID:      body.ChannelID,
		ChannelName:    body.ChannelName,
		Model:          body.Model,
		Title:          body.Title,
		Description:    body.Description,
		ParentThreadID: body.ParentThreadID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, taskResponse{Success: true, Task: saved})
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body updateTaskRequest
	if err := c.Bind(&body); err != nil {
		return badRequest("invalid request body")
	}
	if body.Title == nil && body.Description == nil {
		return badRequest("taskTitle or taskDescription is required")
	}
	updated, err := s.store.UpdateTask(c.Request().Context(), id, store.TaskUpdate{
		Title:       body.Title,
		Description: body.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, taskResponse{Success: true, Task: updated})
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteResponse{Success: true, ID: id})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("id must be a positive integer")
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest(name + " must be a non-negative integer")
	}
	return n, nil
}
