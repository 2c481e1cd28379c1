package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"convoy/internal/logging"
	"convoy/internal/services"
	"convoy/internal/store"
	"convoy/internal/taskgen"
)

// Server routes HTTP requests onto a taskgen service.
type Server struct {
	echo         *echo.Echo
	svc          *taskgen.Service
	store        *store.Store
	logger       *slog.Logger
	ollamaClient *http.Client
}

// Option customizes a Server.
type Option func(*Server)

// WithOllamaClient sets the HTTP client used to list Ollama models.
func WithOllamaClient(client *http.Client) Option {
	return func(s *Server) {
		if client != nil {
			s.ollamaClient = client
		}
	}
}

// New builds a Server with its middleware and routes registered.
func New(svc *taskgen.Service, logger *slog.Logger, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("api: task service is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		svc:    svc,
		store:  svc.Store(),
		logger: logging.NewComponentLogger(logger, "api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(services.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(s.logRequests)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.POST("/sync", s.handleSync)

	api.POST("/tasks/prepare", s.handlePrepare)
	api.POST("/tasks/extract-thread", s.handleExtractThread)
	api.POST("/tasks/merge", s.handleMerge)
	api.POST("/tasks/generate", s.handleGenerate)

	api.GET("/tasks", s.handleListTasks)
	api.POST("/tasks", s.handleSaveTask)
	api.PUT("/tasks/:id", s.handleUpdateTask)
	api.DELETE("/tasks/:id", s.handleDeleteTask)

	api.GET("/prompts", s.handleListPrompts)
	api.POST("/prompts", s.handleCreatePrompt)
	api.GET("/prompts/:id", s.handleGetPrompt)
	api.PUT("/prompts/:id", s.handleUpdatePrompt)
	api.DELETE("/prompts/:id", s.handleDeletePrompt)
	api.PUT("/prompts/:id/default", s.handleSetDefaultPrompt)

	api.GET("/ollama/models", s.handleOllamaModels)
}

// ServeHTTP makes the Server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		logger := logging.WithContext(c.Request().Context(), s.logger)
		logger.Info("http request",
			logging.String("method", c.Request().Method),
			logging.String("uri", c.Request().RequestURI),
			logging.Int("status", c.Response().Status),
			logging.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := services.StatusCode(err)
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(
			logging.WithContext(c.Request().Context(), s.logger),
			"request failed",
			"http_request_failed",
			logging.String("uri", c.Request().RequestURI),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorResponse{Success: false, Error: message})
}

func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, message)
}
