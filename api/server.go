package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

const (
	userIDHeader    = "X-User-ID"
	requestIDHeader = "X-Request-ID"
	callerKey       = "caller"
)

// Consumer-side interfaces
type Pipeline interface {
	ProcessSessionResults(ctx context.Context, caller *domain.Caller, sessionID int) (domain.ProcessSummary, error)
	EnqueueSessionProcessing(ctx context.Context, caller *domain.Caller, sessionID int) (string, error)
}

type ResultReader interface {
	GetRawResults(ctx context.Context, caller *domain.Caller, sessionID int, queryID *int) ([]models.RawResultRow, error)
	GetProcessedResults(ctx context.Context, caller *domain.Caller, sessionID int) ([]models.ProcessedResult, error)
	GetDuplicates(ctx context.Context, caller *domain.Caller, sessionID int) ([]models.DuplicateRelationship, error)
}

type SearchRunner interface {
	ExecuteSearchQuery(ctx context.Context, caller *domain.Caller, queryID int, maxResults int) (*domain.ExecutionReport, error)
}

type Server struct {
	pipeline Pipeline
	results  ResultReader
	search   SearchRunner
	logger   *slog.Logger
}

func NewServer(pipeline Pipeline, results ResultReader, search SearchRunner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline: pipeline,
		results:  results,
		search:   search,
		logger:   logger.With("component", "api"),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/api", authenticate())
	authed.POST("/sessions/:sessionId/process", s.ProcessSession)
	authed.POST("/sessions/:sessionId/process/async", s.EnqueueSession)
	authed.GET("/sessions/:sessionId/raw-results", s.RawResults)
	authed.GET("/sessions/:sessionId/processed-results", s.ProcessedResults)
	authed.GET("/sessions/:sessionId/duplicates", s.Duplicates)
	authed.POST("/queries/:queryId/execute", s.ExecuteQuery)

	return r
}

func (s *Server) ProcessSession(c *gin.Context) {
	sessionID, ok := s.intParam(c, "sessionId")
	if !ok {
		return
	}
	summary, err := s.pipeline.ProcessSessionResults(c.Request.Context(), caller(c), sessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) EnqueueSession(c *gin.Context) {
	sessionID, ok := s.intParam(c, "sessionId")
	if !ok {
		return
	}
	runID, err := s.pipeline.EnqueueSessionProcessing(c.Request.Context(), caller(c), sessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

func (s *Server) RawResults(c *gin.Context) {
	sessionID, ok := s.intParam(c, "sessionId")
	if !ok {
		return
	}

	var queryID *int
	if raw := c.Query("queryId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(c, domain.BadRequest("Invalid queryId"))
			return
		}
		queryID = &id
	}

	rows, err := s.results.GetRawResults(c.Request.Context(), caller(c), sessionID, queryID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) ProcessedResults(c *gin.Context) {
	sessionID, ok := s.intParam(c, "sessionId")
	if !ok {
		return
	}
	results, err := s.results.GetProcessedResults(c.Request.Context(), caller(c), sessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) Duplicates(c *gin.Context) {
	sessionID, ok := s.intParam(c, "sessionId")
	if !ok {
		return
	}
	rels, err := s.results.GetDuplicates(c.Request.Context(), caller(c), sessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rels)
}

type ExecuteRequest struct {
	MaxResults int `json:"maxResults"`
}

func (s *Server) ExecuteQuery(c *gin.Context) {
	queryID, ok := s.intParam(c, "queryId")
	if !ok {
		return
	}

	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(c, domain.BadRequest("Invalid request"))
		return
	}
	if req.MaxResults < 0 {
		s.writeError(c, domain.BadRequest("maxResults must not be negative"))
		return
	}

	report, err := s.search.ExecuteSearchQuery(c.Request.Context(), caller(c), queryID, req.MaxResults)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		s.writeError(c, domain.BadRequest("Invalid "+name))
		return 0, false
	}
	return id, true
}

// writeError responds with the error's status code. Causes wrapped in an
// AppError are logged, never sent to the client.
func (s *Server) writeError(c *gin.Context, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.InternalError("Internal server error", err)
	}
	if appErr.Code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", c.GetString(requestIDHeader),
			"path", c.FullPath(),
			"error", err)
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}

func caller(c *gin.Context) *domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		return v.(*domain.Caller)
	}
	return nil
}

// authenticate reads the user id set by the upstream auth layer. A missing
// header leaves the request anonymous; services reject it where required.
func authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(userIDHeader)
		if raw == "" {
			c.Next()
			return
		}
		userID, err := strconv.Atoi(raw)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(callerKey, &domain.Caller{UserID: userID})
		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"request_id", c.GetString(requestIDHeader),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
