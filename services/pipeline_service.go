package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

// Consumer-side interfaces
type ResultRepository interface {
	SessionGetter
	ProcessedResultWriter
	DuplicateRepository
	ListUnprocessedRawResults(ctx context.Context, sessionID int) ([]models.RawSearchResult, error)
}

type SessionLocker interface {
	Acquire(ctx context.Context, sessionID int, token string) (bool, error)
	Refresh(ctx context.Context, sessionID int, token string) (bool, error)
	Release(ctx context.Context, sessionID int, token string) error
}

type ResultIndexer interface {
	IndexResult(ctx context.Context, result models.ProcessedResult) error
}

type ProcessQueue interface {
	Enqueue(ctx context.Context, msg domain.ProcessMessage) error
}

const processFailedMessage = "Failed to process session results"

type PipelineService struct {
	repo     ResultRepository
	locker   SessionLocker
	indexer  ResultIndexer
	queue    ProcessQueue
	logger   *slog.Logger
	now      func() time.Time
	newToken func() string
}

// Functional Options Pattern
type PipelineOption func(*PipelineService)

func WithResultRepository(r ResultRepository) PipelineOption {
	return func(s *PipelineService) { s.repo = r }
}

func WithSessionLocker(l SessionLocker) PipelineOption {
	return func(s *PipelineService) { s.locker = l }
}

func WithResultIndexer(i ResultIndexer) PipelineOption {
	return func(s *PipelineService) { s.indexer = i }
}

func WithProcessQueue(q ProcessQueue) PipelineOption {
	return func(s *PipelineService) { s.queue = q }
}

func WithLogger(l *slog.Logger) PipelineOption {
	return func(s *PipelineService) { s.logger = l }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(s *PipelineService) { s.now = now }
}

func NewPipelineService(opts ...PipelineOption) *PipelineService {
	s := &PipelineService{
		logger:   slog.Default(),
		now:      time.Now,
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "pipeline")
	return s
}

// batchTally is the accumulator threaded through one pipeline run.
type batchTally struct {
	processed  int
	duplicates int
	results    []models.ProcessedResult
}

// ProcessSessionResults normalizes every unprocessed raw result of the session
// and records url_match duplicates. Items are handled one at a time, in id
// order, so each item sees the ones before it.
func (s *PipelineService) ProcessSessionResults(ctx context.Context, caller *domain.Caller, sessionID int) (domain.ProcessSummary, error) {
	if _, err := authorizeSession(ctx, s.repo, caller, sessionID); err != nil {
		return domain.ProcessSummary{}, err
	}

	lock, err := s.lock(ctx, sessionID)
	if err != nil {
		return domain.ProcessSummary{}, err
	}
	defer lock.release()

	pending, err := s.repo.ListUnprocessedRawResults(ctx, sessionID)
	if err != nil {
		return domain.ProcessSummary{}, s.fail(sessionID, err)
	}
	if len(pending) == 0 {
		return domain.NewProcessSummary(0, 0), nil
	}

	processor := NewResultProcessor(s.repo, s.now)
	detector := NewDuplicateDetector(s.repo)

	tally := batchTally{results: make([]models.ProcessedResult, 0, len(pending))}
	for i, raw := range pending {
		if err := ctx.Err(); err != nil {
			return domain.ProcessSummary{}, s.fail(sessionID, err)
		}
		if i > 0 {
			if err := lock.refresh(); err != nil {
				return domain.ProcessSummary{}, err
			}
		}
		tally, err = processOne(ctx, processor, detector, tally, raw, sessionID)
		if err != nil {
			return domain.ProcessSummary{}, s.fail(sessionID, err)
		}
	}

	s.index(ctx, tally.results)

	s.logger.Info("processed session results",
		"session_id", sessionID,
		"processed", tally.processed,
		"duplicates", tally.duplicates)
	return domain.NewProcessSummary(tally.processed, tally.duplicates), nil
}

func processOne(ctx context.Context, processor *ResultProcessor, detector *DuplicateDetector, tally batchTally, raw models.RawSearchResult, sessionID int) (batchTally, error) {
	result, err := processor.ProcessResult(ctx, raw, sessionID)
	if err != nil {
		return tally, err
	}
	relationships, err := detector.FindDuplicates(ctx, result)
	if err != nil {
		return tally, err
	}
	return batchTally{
		processed:  tally.processed + 1,
		duplicates: tally.duplicates + len(relationships),
		results:    append(tally.results, *result),
	}, nil
}

// EnqueueSessionProcessing checks ownership and queues an asynchronous run.
// It returns the run id the worker will report status under.
func (s *PipelineService) EnqueueSessionProcessing(ctx context.Context, caller *domain.Caller, sessionID int) (string, error) {
	if _, err := authorizeSession(ctx, s.repo, caller, sessionID); err != nil {
		return "", err
	}
	if s.queue == nil {
		return "", domain.InternalError("Asynchronous processing is not configured", nil)
	}

	msg := domain.ProcessMessage{
		Type:      domain.MsgTypeProcessSession,
		SessionID: sessionID,
		UserID:    caller.UserID,
		RunID:     uuid.NewString(),
	}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.logger.Error("failed to enqueue processing run", "session_id", sessionID, "error", err)
		return "", domain.InternalError("Failed to queue session processing", err)
	}
	return msg.RunID, nil
}

// sessionLock is a held advisory lock. Both funcs are no-ops without a locker.
type sessionLock struct {
	refresh func() error
	release func()
}

// lock takes the session's advisory lock. Without a locker runs are not
// serialized across processes.
func (s *PipelineService) lock(ctx context.Context, sessionID int) (*sessionLock, error) {
	if s.locker == nil {
		return &sessionLock{refresh: func() error { return nil }, release: func() {}}, nil
	}

	token := s.newToken()
	acquired, err := s.locker.Acquire(ctx, sessionID, token)
	if err != nil {
		s.logger.Error("failed to acquire session lock", "session_id", sessionID, "error", err)
		return nil, domain.InternalError(processFailedMessage, err)
	}
	if !acquired {
		return nil, domain.Conflict(fmt.Sprintf("Session %d is already being processed", sessionID))
	}

	return &sessionLock{
		// A backend error leaves the current TTL in place, so the run goes on.
		// A lost lock stops the run; items already written stay.
		refresh: func() error {
			held, err := s.locker.Refresh(ctx, sessionID, token)
			if err != nil {
				s.logger.Warn("failed to refresh session lock", "session_id", sessionID, "error", err)
				return nil
			}
			if !held {
				s.logger.Error("session lock lost during processing", "session_id", sessionID)
				return domain.Conflict(fmt.Sprintf("Lost the processing lock for session %d", sessionID))
			}
			return nil
		},
		release: func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), sessionID, token); err != nil {
				s.logger.Warn("failed to release session lock", "session_id", sessionID, "error", err)
			}
		},
	}, nil
}

func (s *PipelineService) fail(sessionID int, err error) error {
	s.logger.Error("session processing failed", "session_id", sessionID, "error", err)
	return domain.InternalError(processFailedMessage, err)
}

func (s *PipelineService) index(ctx context.Context, results []models.ProcessedResult) {
	if s.indexer == nil {
		return
	}
	for _, result := range results {
		if err := s.indexer.IndexResult(ctx, result); err != nil {
			s.logger.Warn("failed to index processed result", "result_id", result.ID, "error", err)
		}
	}
}
