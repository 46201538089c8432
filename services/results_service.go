package services

import (
	"context"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

type ResultQueryRepository interface {
	SessionGetter
	ListRawResults(ctx context.Context, sessionID int, queryID *int) ([]models.RawResultRow, error)
	ListProcessedResults(ctx context.Context, sessionID int) ([]models.ProcessedResult, error)
	ListDuplicateRelationships(ctx context.Context, sessionID int) ([]models.DuplicateRelationship, error)
}

// ResultsService serves read-only views over a session's results.
type ResultsService struct {
	repo ResultQueryRepository
}

func NewResultsService(repo ResultQueryRepository) *ResultsService {
	return &ResultsService{repo: repo}
}

// GetRawResults lists raw results by rank, optionally for a single query.
func (s *ResultsService) GetRawResults(ctx context.Context, caller *domain.Caller, sessionID int, queryID *int) ([]models.RawResultRow, error) {
	if _, err := authorizeSession(ctx, s.repo, caller, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRawResults(ctx, sessionID, queryID)
	if err != nil {
		return nil, domain.InternalError("Failed to load raw results", err)
	}
	if rows == nil {
		rows = []models.RawResultRow{}
	}
	return rows, nil
}

func (s *ResultsService) GetProcessedResults(ctx context.Context, caller *domain.Caller, sessionID int) ([]models.ProcessedResult, error) {
	if _, err := authorizeSession(ctx, s.repo, caller, sessionID); err != nil {
		return nil, err
	}
	results, err := s.repo.ListProcessedResults(ctx, sessionID)
	if err != nil {
		return nil, domain.InternalError("Failed to load processed results", err)
	}
	if results == nil {
		results = []models.ProcessedResult{}
	}
	return results, nil
}

// GetDuplicates lists the url_match relationships touching the session.
func (s *ResultsService) GetDuplicates(ctx context.Context, caller *domain.Caller, sessionID int) ([]models.DuplicateRelationship, error) {
	if _, err := authorizeSession(ctx, s.repo, caller, sessionID); err != nil {
		return nil, err
	}
	rels, err := s.repo.ListDuplicateRelationships(ctx, sessionID)
	if err != nil {
		return nil, domain.InternalError("Failed to load duplicate relationships", err)
	}
	if rels == nil {
		rels = []models.DuplicateRelationship{}
	}
	return rels, nil
}
