package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

type PostgresDBRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewDBRepository(db *gorm.DB, batchSize int) *PostgresDBRepository {
	if batchSize <= 0 {
		batchSize = 100 // Default
	}
	return &PostgresDBRepository{
		db:        db,
		batchSize: batchSize,
	}
}

// Migrate creates or updates the schema for every model.
func (repo *PostgresDBRepository) Migrate(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (repo *PostgresDBRepository) GetSession(ctx context.Context, sessionID int) (*models.SearchSession, error) {
	var session models.SearchSession
	err := repo.db.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, lookupError("session", sessionID, err)
	}
	return &session, nil
}

func (repo *PostgresDBRepository) GetQuery(ctx context.Context, queryID int) (*models.SearchQuery, error) {
	var query models.SearchQuery
	err := repo.db.WithContext(ctx).
		Preload("Session").
		Where("id = ?", queryID).
		First(&query).Error
	if err != nil {
		return nil, lookupError("query", queryID, err)
	}
	return &query, nil
}

// ListUnprocessedRawResults returns the raw results of the session's queries
// that have no processed result yet, oldest first.
func (repo *PostgresDBRepository) ListUnprocessedRawResults(ctx context.Context, sessionID int) ([]models.RawSearchResult, error) {
	var results []models.RawSearchResult
	err := repo.db.WithContext(ctx).
		Joins("JOIN search_queries ON search_queries.id = raw_search_results.query_id").
		Joins("LEFT JOIN processed_results ON processed_results.raw_result_id = raw_search_results.id").
		Where("search_queries.session_id = ? AND processed_results.id IS NULL", sessionID).
		Order("raw_search_results.id").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed raw results for session %d: %w", sessionID, err)
	}
	return results, nil
}

func (repo *PostgresDBRepository) CreateProcessedResult(ctx context.Context, result *models.ProcessedResult) error {
	if err := repo.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to insert processed result for raw result %d: %w", result.RawResultID, err)
	}
	return nil
}

// FindProcessedResultsByURL searches every session, not only the caller's.
func (repo *PostgresDBRepository) FindProcessedResultsByURL(ctx context.Context, normalizedURL string, excludeID int) ([]models.ProcessedResult, error) {
	var results []models.ProcessedResult
	err := repo.db.WithContext(ctx).
		Where("url = ? AND id <> ?", normalizedURL, excludeID).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find processed results by url: %w", err)
	}
	return results, nil
}

func (repo *PostgresDBRepository) CreateDuplicateRelationship(ctx context.Context, rel *models.DuplicateRelationship) error {
	if err := repo.db.WithContext(ctx).Create(rel).Error; err != nil {
		return fmt.Errorf("failed to insert duplicate relationship %d-%d: %w", rel.PrimaryResultID, rel.DuplicateResultID, err)
	}
	return nil
}

func (repo *PostgresDBRepository) CreateExecution(ctx context.Context, exec *models.SearchExecution) error {
	if err := repo.db.WithContext(ctx).Create(exec).Error; err != nil {
		return fmt.Errorf("failed to insert search execution for query %d: %w", exec.QueryID, err)
	}
	return nil
}

// FinishExecution moves an execution out of the running state.
func (repo *PostgresDBRepository) FinishExecution(ctx context.Context, executionID int, status string, resultCount int, errMsg string) error {
	res := repo.db.WithContext(ctx).
		Model(&models.SearchExecution{}).
		Where("id = ?", executionID).
		Updates(map[string]interface{}{
			"status":       status,
			"end_time":     time.Now().UTC(),
			"result_count": resultCount,
			"error":        errMsg,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update search execution %d: %w", executionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no search execution %d to update: %w", executionID, domain.ErrNotFound)
	}
	return nil
}

func (repo *PostgresDBRepository) InsertRawResults(ctx context.Context, results []models.RawSearchResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := repo.db.WithContext(ctx).CreateInBatches(results, repo.batchSize).Error; err != nil {
		return fmt.Errorf("failed to batch insert raw results: %w", err)
	}
	return nil
}

// ListRawResults returns the session's raw results ordered by rank. A
// non-nil queryID restricts them to one query.
func (repo *PostgresDBRepository) ListRawResults(ctx context.Context, sessionID int, queryID *int) ([]models.RawResultRow, error) {
	tx := repo.db.WithContext(ctx).
		Table("raw_search_results").
		Select("raw_search_results.*, search_queries.query AS query_text, processed_results.id AS processed_result_id").
		Joins("JOIN search_queries ON search_queries.id = raw_search_results.query_id").
		Joins("LEFT JOIN processed_results ON processed_results.raw_result_id = raw_search_results.id").
		Where("search_queries.session_id = ?", sessionID)
	if queryID != nil {
		tx = tx.Where("raw_search_results.query_id = ?", *queryID)
	}

	var rows []models.RawResultRow
	if err := tx.Order("raw_search_results.rank ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list raw results for session %d: %w", sessionID, err)
	}
	return rows, nil
}

func (repo *PostgresDBRepository) ListProcessedResults(ctx context.Context, sessionID int) ([]models.ProcessedResult, error) {
	var results []models.ProcessedResult
	err := repo.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("title ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list processed results for session %d: %w", sessionID, err)
	}
	return results, nil
}

// ListDuplicateRelationships returns every relationship with at least one side
// in the session, including matches against other sessions' results.
func (repo *PostgresDBRepository) ListDuplicateRelationships(ctx context.Context, sessionID int) ([]models.DuplicateRelationship, error) {
	var rels []models.DuplicateRelationship
	err := repo.db.WithContext(ctx).
		Where("primary_result_id IN (SELECT id FROM processed_results WHERE session_id = ?) OR duplicate_result_id IN (SELECT id FROM processed_results WHERE session_id = ?)", sessionID, sessionID).
		Order("id").
		Find(&rels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate relationships for session %d: %w", sessionID, err)
	}
	return rels, nil
}

func lookupError(kind string, id int, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to find %s %d: %w", kind, id, err)
}
