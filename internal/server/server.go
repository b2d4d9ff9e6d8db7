// Package server exposes the generation pipeline over HTTP. The API is
// stateless: every call carries its inputs and receives the full result;
// persistence is an optional convenience on top.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storeforge/storeforge/internal/discovery"
	"github.com/storeforge/storeforge/internal/pipeline"
	"github.com/storeforge/storeforge/internal/storage"
	"github.com/storeforge/storeforge/internal/store"
)

// Server wires the pipeline runner and optional storage backend into a gin
// router.
type Server struct {
	runner  *pipeline.Runner
	backend storage.Backend // may be nil
	logger  *slog.Logger
}

// New creates a Server. backend may be nil, which disables persistence and
// the document endpoints return 503.
func New(runner *pipeline.Runner, backend storage.Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		runner:  runner,
		backend: backend,
		logger:  logger.With("component", "server"),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/generate", s.handleGenerate)
		api.POST("/step", s.handleStep)
		api.POST("/refine", s.handleRefine)
		api.POST("/search", s.handleSearch)
		api.GET("/documents", s.handleListDocuments)
		api.GET("/documents/:id", s.handleGetDocument)
		api.DELETE("/documents/:id", s.handleDeleteDocument)
	}

	return r
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	doc, err := s.runner.Generate(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.persist(c, doc)
	c.JSON(http.StatusOK, doc)
}

type stepRequest struct {
	Stage  string          `json:"stage"`
	Inputs json.RawMessage `json:"inputs"`
}

func (s *Server) handleStep(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	out, err := s.runner.Step(c.Request.Context(), req.Stage, req.Inputs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": req.Stage, "output": out})
}

type refineRequest struct {
	Document    *store.StoreDocument `json:"document"`
	Instruction string               `json:"instruction"`
}

func (s *Server) handleRefine(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	doc, err := s.runner.Refine(c.Request.Context(), req.Document, req.Instruction)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.persist(c, doc)
	c.JSON(http.StatusOK, doc)
}

type searchRequest struct {
	Keyword     string `json:"keyword"`
	Marketplace string `json:"marketplace"`
	Limit       int    `json:"limit"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Limit <= 0 {
		req.Limit = store.DefaultLimits().MaxProductsInPrompt
	}

	products, err := s.runner.StepSearch(c.Request.Context(), req.Keyword, req.Marketplace, req.Limit)
	if err != nil {
		// A still-running provider job is not a failure: hand back the
		// snapshot ID so the caller can resume polling later.
		var procErr *discovery.ErrStillProcessing
		if errors.As(err, &procErr) {
			c.JSON(http.StatusAccepted, gin.H{"processing": true, "snapshotId": procErr.SnapshotID})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	if s.backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no storage backend configured"})
		return
	}

	filter := storage.Filter{
		BrandName:   c.Query("brand"),
		Marketplace: c.Query("marketplace"),
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	docs, err := s.backend.List(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	if s.backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no storage backend configured"})
		return
	}

	doc, err := s.backend.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	if s.backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no storage backend configured"})
		return
	}

	if err := s.backend.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// persist saves the document when a backend is configured. A storage failure
// never fails the request; the generated document is the payload the caller
// came for.
func (s *Server) persist(c *gin.Context, doc *store.StoreDocument) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Save(c.Request.Context(), doc); err != nil {
		s.logger.Error("persist document failed", "id", doc.ID, "error", err)
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	var stageErr *pipeline.StageError

	switch {
	case errors.Is(err, pipeline.ErrInputInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &stageErr):
		s.logger.Error("stage failed", "stage", stageErr.Stage, "error", stageErr.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
