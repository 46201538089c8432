package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/barrie-cork/thesis-swarm/domain"
)

type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, queueURL string, maxMessages int32, waitTime int32) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, queueURL string, receiptHandle *string) error
}

type RunStatusRepository interface {
	MarkRunStarted(ctx context.Context, runID string, sessionID int) error
	MarkRunCompleted(ctx context.Context, runID string, summary domain.ProcessSummary) error
	MarkRunFailed(ctx context.Context, runID string, reason string) error
}

type SessionProcessor interface {
	ProcessSessionResults(ctx context.Context, caller *domain.Caller, sessionID int) (domain.ProcessSummary, error)
}

// ProcessingWorker drains process_session requests from a queue.
type ProcessingWorker struct {
	queue      QueueConsumer
	queueURL   string
	processor  SessionProcessor
	statusRepo RunStatusRepository
	logger     *slog.Logger
	retryDelay time.Duration
}

type WorkerOption func(*ProcessingWorker)

func WithQueueConsumer(q QueueConsumer, queueURL string) WorkerOption {
	return func(w *ProcessingWorker) {
		w.queue = q
		w.queueURL = queueURL
	}
}

func WithSessionProcessor(p SessionProcessor) WorkerOption {
	return func(w *ProcessingWorker) { w.processor = p }
}

func WithRunStatusRepository(r RunStatusRepository) WorkerOption {
	return func(w *ProcessingWorker) { w.statusRepo = r }
}

func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *ProcessingWorker) { w.logger = l }
}

func WithRetryDelay(d time.Duration) WorkerOption {
	return func(w *ProcessingWorker) { w.retryDelay = d }
}

func NewProcessingWorker(opts ...WorkerOption) *ProcessingWorker {
	w := &ProcessingWorker{
		logger:     slog.Default(),
		retryDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "worker")
	return w
}

// Start polls the queue until ctx is cancelled.
func (w *ProcessingWorker) Start(ctx context.Context) {
	w.logger.Info("processing worker started", "queue_url", w.queueURL)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("processing worker stopping")
			return
		default:
			w.poll(ctx)
		}
	}
}

func (w *ProcessingWorker) poll(ctx context.Context) {
	out, err := w.queue.ReceiveMessages(ctx, w.queueURL, 10, 5)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("failed to receive messages", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
		return
	}

	for _, msg := range out.Messages {
		if msg.Body == nil {
			continue
		}
		var body domain.ProcessMessage
		if err := json.Unmarshal([]byte(*msg.Body), &body); err != nil {
			w.logger.Error("failed to unmarshal message, dropping it", "error", err)
			w.delete(ctx, msg.ReceiptHandle)
			continue
		}

		if err := w.HandleMessage(ctx, body); err != nil {
			w.logger.Warn("leaving message for redelivery", "run_id", body.RunID, "error", err)
			continue
		}
		w.delete(ctx, msg.ReceiptHandle)
	}
}

func (w *ProcessingWorker) delete(ctx context.Context, handle *string) {
	if err := w.queue.DeleteMessage(ctx, w.queueURL, handle); err != nil {
		w.logger.Error("failed to delete message", "error", err)
	}
}

// HandleMessage runs the pipeline for one request. A nil return means the
// message is finished with and can be deleted; an error means it should be
// redelivered.
func (w *ProcessingWorker) HandleMessage(ctx context.Context, msg domain.ProcessMessage) error {
	if msg.Type != domain.MsgTypeProcessSession {
		w.logger.Warn("ignoring message of unknown type", "type", msg.Type)
		return nil
	}

	if err := w.statusRepo.MarkRunStarted(ctx, msg.RunID, msg.SessionID); err != nil {
		w.logger.Error("failed to record run start", "run_id", msg.RunID, "error", err)
	}

	summary, err := w.processor.ProcessSessionResults(ctx, &domain.Caller{UserID: msg.UserID}, msg.SessionID)
	if err != nil {
		if dErr := w.statusRepo.MarkRunFailed(ctx, msg.RunID, err.Error()); dErr != nil {
			w.logger.Error("failed to record run failure", "run_id", msg.RunID, "error", dErr)
		}
		if domain.Retryable(err) {
			return err
		}
		w.logger.Warn("run rejected", "run_id", msg.RunID, "session_id", msg.SessionID, "error", err)
		return nil
	}

	if err := w.statusRepo.MarkRunCompleted(ctx, msg.RunID, summary); err != nil {
		w.logger.Error("failed to record run completion", "run_id", msg.RunID, "error", err)
	}
	return nil
}
