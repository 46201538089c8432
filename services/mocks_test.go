package services

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/mock"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

// Mocks
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) GetSession(ctx context.Context, sessionID int) (*models.SearchSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchSession), args.Error(1)
}

func (m *MockResultRepository) ListUnprocessedRawResults(ctx context.Context, sessionID int) ([]models.RawSearchResult, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]models.RawSearchResult), args.Error(1)
}

func (m *MockResultRepository) CreateProcessedResult(ctx context.Context, result *models.ProcessedResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) FindProcessedResultsByURL(ctx context.Context, normalizedURL string, excludeID int) ([]models.ProcessedResult, error) {
	args := m.Called(ctx, normalizedURL, excludeID)
	return args.Get(0).([]models.ProcessedResult), args.Error(1)
}

func (m *MockResultRepository) CreateDuplicateRelationship(ctx context.Context, rel *models.DuplicateRelationship) error {
	args := m.Called(ctx, rel)
	return args.Error(0)
}

func (m *MockResultRepository) ListRawResults(ctx context.Context, sessionID int, queryID *int) ([]models.RawResultRow, error) {
	args := m.Called(ctx, sessionID, queryID)
	return args.Get(0).([]models.RawResultRow), args.Error(1)
}

func (m *MockResultRepository) ListProcessedResults(ctx context.Context, sessionID int) ([]models.ProcessedResult, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]models.ProcessedResult), args.Error(1)
}

func (m *MockResultRepository) ListDuplicateRelationships(ctx context.Context, sessionID int) ([]models.DuplicateRelationship, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]models.DuplicateRelationship), args.Error(1)
}

type MockSessionLocker struct {
	mock.Mock
}

func (m *MockSessionLocker) Acquire(ctx context.Context, sessionID int, token string) (bool, error) {
	args := m.Called(ctx, sessionID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionLocker) Refresh(ctx context.Context, sessionID int, token string) (bool, error) {
	args := m.Called(ctx, sessionID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionLocker) Release(ctx context.Context, sessionID int, token string) error {
	args := m.Called(ctx, sessionID, token)
	return args.Error(0)
}

type MockResultIndexer struct {
	mock.Mock
}

func (m *MockResultIndexer) IndexResult(ctx context.Context, result models.ProcessedResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type MockProcessQueue struct {
	mock.Mock
}

func (m *MockProcessQueue) Enqueue(ctx context.Context, msg domain.ProcessMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) GetQuery(ctx context.Context, queryID int) (*models.SearchQuery, error) {
	args := m.Called(ctx, queryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchQuery), args.Error(1)
}

func (m *MockExecutionRepository) CreateExecution(ctx context.Context, exec *models.SearchExecution) error {
	args := m.Called(ctx, exec)
	return args.Error(0)
}

func (m *MockExecutionRepository) FinishExecution(ctx context.Context, executionID int, status string, resultCount int, errMsg string) error {
	args := m.Called(ctx, executionID, status, resultCount, errMsg)
	return args.Error(0)
}

func (m *MockExecutionRepository) InsertRawResults(ctx context.Context, results []models.RawSearchResult) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

type MockSearchProvider struct {
	mock.Mock
}

func (m *MockSearchProvider) Search(ctx context.Context, query string, maxResults int) (*domain.SearchResponse, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchResponse), args.Error(1)
}

type MockResponseArchive struct {
	mock.Mock
}

func (m *MockResponseArchive) ArchiveRawResponse(ctx context.Context, queryID, executionID int, body []byte) (string, error) {
	args := m.Called(ctx, queryID, executionID, body)
	return args.String(0), args.Error(1)
}

type MockQueueConsumer struct {
	mock.Mock
}

func (m *MockQueueConsumer) ReceiveMessages(ctx context.Context, queueURL string, maxMessages int32, waitTime int32) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, queueURL, maxMessages, waitTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockQueueConsumer) DeleteMessage(ctx context.Context, queueURL string, receiptHandle *string) error {
	args := m.Called(ctx, queueURL, receiptHandle)
	return args.Error(0)
}

type MockRunStatusRepository struct {
	mock.Mock
}

func (m *MockRunStatusRepository) MarkRunStarted(ctx context.Context, runID string, sessionID int) error {
	args := m.Called(ctx, runID, sessionID)
	return args.Error(0)
}

func (m *MockRunStatusRepository) MarkRunCompleted(ctx context.Context, runID string, summary domain.ProcessSummary) error {
	args := m.Called(ctx, runID, summary)
	return args.Error(0)
}

func (m *MockRunStatusRepository) MarkRunFailed(ctx context.Context, runID string, reason string) error {
	args := m.Called(ctx, runID, reason)
	return args.Error(0)
}

type MockSessionProcessor struct {
	mock.Mock
}

func (m *MockSessionProcessor) ProcessSessionResults(ctx context.Context, caller *domain.Caller, sessionID int) (domain.ProcessSummary, error) {
	args := m.Called(ctx, caller, sessionID)
	return args.Get(0).(domain.ProcessSummary), args.Error(1)
}

// memoryStore is an in-memory ResultRepository that assigns ids the way the
// database does.
type memoryStore struct {
	sessions      map[int]models.SearchSession
	querySessions map[int]int
	raw           []models.RawSearchResult
	processed     []models.ProcessedResult
	relationships []models.DuplicateRelationship
	writes        int

	// failCreateAt makes the n-th CreateProcessedResult call (1-based) fail.
	failCreateAt int
	creates      int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions:      map[int]models.SearchSession{},
		querySessions: map[int]int{},
	}
}

func (s *memoryStore) addSession(id, userID int) {
	s.sessions[id] = models.SearchSession{ID: id, UserID: userID, Name: "review"}
}

func (s *memoryStore) addQuery(id, sessionID int) {
	s.querySessions[id] = sessionID
}

func (s *memoryStore) addRaw(queryID int, url string) models.RawSearchResult {
	raw := models.RawSearchResult{
		ID:           len(s.raw) + 1,
		QueryID:      queryID,
		Title:        "Result " + url,
		URL:          url,
		Rank:         len(s.raw) + 1,
		SearchEngine: domain.SearchEngineGoogle,
	}
	s.raw = append(s.raw, raw)
	return raw
}

func (s *memoryStore) GetSession(_ context.Context, sessionID int) (*models.SearchSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

func (s *memoryStore) ListUnprocessedRawResults(_ context.Context, sessionID int) ([]models.RawSearchResult, error) {
	done := map[int]bool{}
	for _, p := range s.processed {
		done[p.RawResultID] = true
	}
	var out []models.RawSearchResult
	for _, r := range s.raw {
		if s.querySessions[r.QueryID] == sessionID && !done[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateProcessedResult(_ context.Context, result *models.ProcessedResult) error {
	s.creates++
	if s.failCreateAt > 0 && s.creates == s.failCreateAt {
		return errors.New("connection reset")
	}
	result.ID = len(s.processed) + 1
	s.processed = append(s.processed, *result)
	s.writes++
	return nil
}

func (s *memoryStore) FindProcessedResultsByURL(_ context.Context, normalizedURL string, excludeID int) ([]models.ProcessedResult, error) {
	var out []models.ProcessedResult
	for _, p := range s.processed {
		if p.URL == normalizedURL && p.ID != excludeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateDuplicateRelationship(_ context.Context, rel *models.DuplicateRelationship) error {
	rel.ID = len(s.relationships) + 1
	s.relationships = append(s.relationships, *rel)
	s.writes++
	return nil
}
