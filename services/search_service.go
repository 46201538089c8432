package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

type ExecutionRepository interface {
	GetQuery(ctx context.Context, queryID int) (*models.SearchQuery, error)
	CreateExecution(ctx context.Context, exec *models.SearchExecution) error
	FinishExecution(ctx context.Context, executionID int, status string, resultCount int, errMsg string) error
	InsertRawResults(ctx context.Context, results []models.RawSearchResult) error
}

type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) (*domain.SearchResponse, error)
}

type ResponseArchive interface {
	ArchiveRawResponse(ctx context.Context, queryID, executionID int, body []byte) (string, error)
}

// SearchService runs a query against the search provider and stores the hits
// as raw results.
type SearchService struct {
	repo              ExecutionRepository
	provider          SearchProvider
	archive           ResponseArchive
	logger            *slog.Logger
	now               func() time.Time
	defaultMaxResults int
}

type SearchOption func(*SearchService)

func WithExecutionRepository(r ExecutionRepository) SearchOption {
	return func(s *SearchService) { s.repo = r }
}

func WithSearchProvider(p SearchProvider) SearchOption {
	return func(s *SearchService) { s.provider = p }
}

func WithResponseArchive(a ResponseArchive) SearchOption {
	return func(s *SearchService) { s.archive = a }
}

func WithSearchLogger(l *slog.Logger) SearchOption {
	return func(s *SearchService) { s.logger = l }
}

func WithSearchClock(now func() time.Time) SearchOption {
	return func(s *SearchService) { s.now = now }
}

func WithDefaultMaxResults(n int) SearchOption {
	return func(s *SearchService) { s.defaultMaxResults = n }
}

func NewSearchService(opts ...SearchOption) *SearchService {
	s := &SearchService{
		logger:            slog.Default(),
		now:               time.Now,
		defaultMaxResults: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "search")
	return s
}

// ExecuteSearchQuery records an execution for the query, calls the provider
// once and stores its hits. A provider failure marks the execution failed and
// is reported in the returned ExecutionReport rather than as an error.
func (s *SearchService) ExecuteSearchQuery(ctx context.Context, caller *domain.Caller, queryID int, maxResults int) (*domain.ExecutionReport, error) {
	if caller == nil {
		return nil, domain.Unauthorized()
	}

	query, err := s.repo.GetQuery(ctx, queryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Search query not found")
		}
		return nil, domain.InternalError("Failed to load search query", err)
	}
	if query.Session.UserID != caller.UserID {
		return nil, domain.Forbidden("You do not have access to this search query")
	}

	if maxResults <= 0 {
		maxResults = s.defaultMaxResults
	}

	exec := &models.SearchExecution{
		QueryID:   query.ID,
		SessionID: query.SessionID,
		Status:    domain.ExecutionRunning,
		StartTime: s.now().UTC(),
	}
	if err := s.repo.CreateExecution(ctx, exec); err != nil {
		return nil, domain.InternalError("Failed to start search execution", err)
	}

	count, searchErr := s.search(ctx, query, exec.ID, maxResults)

	report := &domain.ExecutionReport{
		ExecutionID: exec.ID,
		QueryID:     query.ID,
		Status:      domain.ExecutionCompleted,
		ResultCount: count,
	}
	if searchErr != nil {
		s.logger.Error("search execution failed", "query_id", query.ID, "execution_id", exec.ID, "error", searchErr)
		report.Status = domain.ExecutionFailed
		report.ResultCount = 0
		report.Error = searchErr.Error()
	}

	if err := s.repo.FinishExecution(ctx, exec.ID, report.Status, report.ResultCount, report.Error); err != nil {
		return nil, domain.InternalError("Failed to finish search execution", err)
	}
	return report, nil
}

func (s *SearchService) search(ctx context.Context, query *models.SearchQuery, executionID int, maxResults int) (int, error) {
	resp, err := s.provider.Search(ctx, query.Query, maxResults)
	if err != nil {
		return 0, err
	}

	s.archiveResponse(ctx, query.ID, executionID, resp.Body)

	results := make([]models.RawSearchResult, 0, len(resp.Hits))
	for i, hit := range resp.Hits {
		results = append(results, toRawResult(query.ID, i+1, hit))
	}
	if err := s.repo.InsertRawResults(ctx, results); err != nil {
		return 0, err
	}
	return len(results), nil
}

func (s *SearchService) archiveResponse(ctx context.Context, queryID, executionID int, body []byte) {
	if s.archive == nil || len(body) == 0 {
		return
	}
	location, err := s.archive.ArchiveRawResponse(ctx, queryID, executionID, body)
	if err != nil {
		s.logger.Warn("failed to archive search response", "execution_id", executionID, "error", err)
		return
	}
	s.logger.Debug("archived search response", "execution_id", executionID, "location", location)
}

func toRawResult(queryID, rank int, hit domain.SearchHit) models.RawSearchResult {
	title := hit.Title
	if title == "" {
		title = domain.UntitledResult
	}
	raw := string(hit.Raw)
	if raw == "" {
		raw = "{}"
	}
	return models.RawSearchResult{
		QueryID:      queryID,
		Title:        title,
		URL:          hit.Link,
		Snippet:      hit.Snippet,
		Rank:         rank,
		SearchEngine: domain.SearchEngineGoogle,
		RawResponse:  raw,
	}
}
