package services

import (
	"context"
	"time"

	"github.com/barrie-cork/thesis-swarm/models"
	"github.com/barrie-cork/thesis-swarm/urlmeta"
)

type ProcessedResultWriter interface {
	CreateProcessedResult(ctx context.Context, result *models.ProcessedResult) error
}

// ResultProcessor turns one raw search hit into a persisted processed result.
type ResultProcessor struct {
	repo ProcessedResultWriter
	now  func() time.Time
}

func NewResultProcessor(repo ProcessedResultWriter, now func() time.Time) *ResultProcessor {
	if now == nil {
		now = time.Now
	}
	return &ResultProcessor{repo: repo, now: now}
}

// ProcessResult writes exactly one new record per call. Callers must only pass
// raw results that have not been processed yet.
func (p *ResultProcessor) ProcessResult(ctx context.Context, raw models.RawSearchResult, sessionID int) (*models.ProcessedResult, error) {
	result := &models.ProcessedResult{
		RawResultID: raw.ID,
		SessionID:   sessionID,
		Title:       raw.Title,
		URL:         urlmeta.Normalize(raw.URL),
		Snippet:     raw.Snippet,
		Metadata: models.ResultMetadata{
			Domain:      urlmeta.Domain(raw.URL),
			FileType:    urlmeta.FileType(raw.URL),
			Source:      raw.SearchEngine,
			RawRank:     raw.Rank,
			ProcessedAt: p.now().UTC(),
		},
	}

	if err := p.repo.CreateProcessedResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}
