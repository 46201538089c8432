package services

import (
	"context"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

type DuplicateRepository interface {
	FindProcessedResultsByURL(ctx context.Context, normalizedURL string, excludeID int) ([]models.ProcessedResult, error)
	CreateDuplicateRelationship(ctx context.Context, rel *models.DuplicateRelationship) error
}

// DuplicateDetector links a new processed result to every existing result
// with the same normalized URL.
type DuplicateDetector struct {
	repo DuplicateRepository
}

func NewDuplicateDetector(repo DuplicateRepository) *DuplicateDetector {
	return &DuplicateDetector{repo: repo}
}

// FindDuplicates records one url_match relationship per existing match. The
// lookup spans all sessions.
func (d *DuplicateDetector) FindDuplicates(ctx context.Context, result *models.ProcessedResult) ([]models.DuplicateRelationship, error) {
	matches, err := d.repo.FindProcessedResultsByURL(ctx, result.URL, result.ID)
	if err != nil {
		return nil, err
	}

	relationships := make([]models.DuplicateRelationship, 0, len(matches))
	for _, match := range matches {
		primary, duplicate := orderedPair(match.ID, result.ID)
		rel := models.DuplicateRelationship{
			PrimaryResultID:   primary,
			DuplicateResultID: duplicate,
			SimilarityScore:   domain.URLMatchSimilarity,
			DuplicateType:     domain.DuplicateTypeURLMatch,
		}
		if err := d.repo.CreateDuplicateRelationship(ctx, &rel); err != nil {
			return nil, err
		}
		relationships = append(relationships, rel)
	}
	return relationships, nil
}

// orderedPair puts the smaller id first so a pair is stored the same way
// whichever result was seen first.
func orderedPair(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
