package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/agentflow/internal/application/chain"
	"github.com/aescanero/agentflow/internal/application/orchestrator"
	"github.com/aescanero/agentflow/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PipelineRequest represents a pipeline run request. Steps default to the
// planner, retriever, analyst, validator chain.
type PipelineRequest struct {
	Query string               `json:"query" binding:"required"`
	RunID string               `json:"run_id"`
	Steps []chain.StepTemplate `json:"steps"`
}

// GraphRequest represents a graph run request. Without nodes the default
// lead → expert graph is used.
type GraphRequest struct {
	Query string                  `json:"query" binding:"required"`
	RunID string                  `json:"run_id"`
	Nodes []domain.NodeDefinition `json:"nodes"`
	Edges []domain.Edge           `json:"edges"`
	Entry string                  `json:"entry"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// errorMapping maps domain errors to HTTP status and error code.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrUnknownRole, http.StatusUnprocessableEntity, "UNKNOWN_ROLE"},
	{domain.ErrUnknownNode, http.StatusUnprocessableEntity, "UNKNOWN_NODE"},
	{domain.ErrCyclicGraph, http.StatusUnprocessableEntity, "CYCLIC_GRAPH"},
	{domain.ErrInvalidGraph, http.StatusBadRequest, "INVALID_GRAPH"},
	{domain.ErrEmptyTrace, http.StatusUnprocessableEntity, "EMPTY_TRACE"},
	{domain.ErrRunNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrRunInProgress, http.StatusConflict, "RUN_IN_PROGRESS"},
}

func (s *Server) writeError(c *gin.Context, err error, details interface{}) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			status, code = m.status, m.code
			break
		}
	}
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Details: details,
		},
	})
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	checks := gin.H{
		"orchestrator": "ok",
		"active_runs":  s.orchestrator.ActiveRuns(),
		"roles":        len(s.orchestrator.Roles()),
	}

	// Without a pool graph levels run sequentially
	checks["workers"] = gin.H{"state": "disabled"}
	if s.pool != nil {
		health := s.pool.Health().Snapshot()
		checks["workers"] = gin.H{"state": health.State(), "pool": health}
		if !health.Healthy {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// handleListRoles lists the registered roles
func (s *Server) handleListRoles(c *gin.Context) {
	roles := s.orchestrator.Roles()
	c.JSON(http.StatusOK, gin.H{
		"roles": roles,
		"total": len(roles),
	})
}

// handleRunPipeline runs a sequential pipeline and returns its report
func (s *Server) handleRunPipeline(c *gin.Context) {
	var req PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid request", zap.Error(err))
		invalidRequest(c, err)
		return
	}
	runID, err := s.runID(req.RunID)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	steps := chain.Expand(req.Query, req.Steps)

	ctx, cancel := s.runContext(c)
	defer cancel()

	run, err := s.orchestrator.RunPipeline(ctx, req.Query, steps, orchestrator.WithRunID(runID))
	if err != nil {
		s.writeError(c, err, gin.H{"run_id": runID})
		return
	}

	c.JSON(http.StatusOK, run.Report)
}

// handleRunGraph builds and runs a dependency graph and returns its report
func (s *Server) handleRunGraph(c *gin.Context) {
	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid request", zap.Error(err))
		invalidRequest(c, err)
		return
	}
	runID, err := s.runID(req.RunID)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	def := domain.GraphDefinition{Nodes: req.Nodes, Edges: req.Edges, Entry: req.Entry}
	if len(def.Nodes) == 0 {
		def = chain.DefaultGraph()
	}

	g, err := s.orchestrator.BuildGraph(def)
	if err != nil {
		s.logger.Warn("graph rejected", zap.Error(err))
		s.writeError(c, err, nil)
		return
	}

	ctx, cancel := s.runContext(c)
	defer cancel()

	run, err := s.orchestrator.RunGraph(ctx, req.Query, g, orchestrator.WithRunID(runID))
	if err != nil {
		s.writeError(c, err, gin.H{"run_id": runID})
		return
	}

	c.JSON(http.StatusOK, run.Report)
}

// handleListRuns lists stored run reports
func (s *Server) handleListRuns(c *gin.Context) {
	reports, err := s.orchestrator.ListReports(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list reports", zap.Error(err))
		s.writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  reports,
		"total": len(reports),
	})
}

// handleGetRun returns one stored run report
func (s *Server) handleGetRun(c *gin.Context) {
	report, err := s.orchestrator.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleDeleteRun removes a stored run report
func (s *Server) handleDeleteRun(c *gin.Context) {
	if err := s.orchestrator.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		if !errors.Is(err, domain.ErrRunNotFound) {
			s.logger.Error("failed to delete report", zap.Error(err))
		}
		s.writeError(c, err, nil)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleCancelRun cancels an in-flight run
func (s *Server) handleCancelRun(c *gin.Context) {
	runID := c.Param("id")

	if err := s.orchestrator.CancelRun(c.Request.Context(), runID); err != nil {
		s.writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":       runID,
		"status":       "cancelling",
		"cancelled_at": time.Now().UTC(),
	})
}

// runID validates a caller-supplied run id or generates one.
func (s *Server) runID(requested string) (string, error) {
	if requested == "" {
		return uuid.New().String(), nil
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return "", errors.New("run_id must be a UUID")
	}
	return id.String(), nil
}

func (s *Server) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.requestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}
