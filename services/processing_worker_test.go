package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/barrie-cork/thesis-swarm/domain"
)

func processMessage() domain.ProcessMessage {
	return domain.ProcessMessage{Type: "process_session", SessionID: 1, UserID: 10, RunID: "run-1"}
}

func newTestWorker(queue QueueConsumer, processor SessionProcessor, status RunStatusRepository) *ProcessingWorker {
	return NewProcessingWorker(
		WithQueueConsumer(queue, "http://queue"),
		WithSessionProcessor(processor),
		WithRunStatusRepository(status),
		WithRetryDelay(time.Millisecond),
	)
}

func TestHandleMessage_Success(t *testing.T) {
	processor := new(MockSessionProcessor)
	status := new(MockRunStatusRepository)
	w := newTestWorker(nil, processor, status)

	summary := domain.NewProcessSummary(3, 1)
	status.On("MarkRunStarted", mock.Anything, "run-1", 1).Return(nil)
	processor.On("ProcessSessionResults", mock.Anything, &domain.Caller{UserID: 10}, 1).Return(summary, nil)
	status.On("MarkRunCompleted", mock.Anything, "run-1", summary).Return(nil)

	err := w.HandleMessage(context.Background(), processMessage())

	assert.NoError(t, err)
	processor.AssertExpectations(t)
	status.AssertExpectations(t)
}

func TestHandleMessage_RetryableFailureKeepsMessage(t *testing.T) {
	processor := new(MockSessionProcessor)
	status := new(MockRunStatusRepository)
	w := newTestWorker(nil, processor, status)

	runErr := domain.InternalError("Failed to process session results", errors.New("db down"))
	status.On("MarkRunStarted", mock.Anything, "run-1", 1).Return(nil)
	processor.On("ProcessSessionResults", mock.Anything, mock.Anything, 1).Return(domain.ProcessSummary{}, runErr)
	status.On("MarkRunFailed", mock.Anything, "run-1", runErr.Error()).Return(nil)

	err := w.HandleMessage(context.Background(), processMessage())

	assert.ErrorIs(t, err, runErr)
	status.AssertExpectations(t)
}

func TestHandleMessage_ConflictKeepsMessage(t *testing.T) {
	processor := new(MockSessionProcessor)
	status := new(MockRunStatusRepository)
	w := newTestWorker(nil, processor, status)

	status.On("MarkRunStarted", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	processor.On("ProcessSessionResults", mock.Anything, mock.Anything, 1).
		Return(domain.ProcessSummary{}, domain.Conflict("busy"))
	status.On("MarkRunFailed", mock.Anything, "run-1", "busy").Return(nil)

	assert.Error(t, w.HandleMessage(context.Background(), processMessage()))
}

func TestHandleMessage_RejectedRunIsDropped(t *testing.T) {
	processor := new(MockSessionProcessor)
	status := new(MockRunStatusRepository)
	w := newTestWorker(nil, processor, status)

	status.On("MarkRunStarted", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("throttled"))
	processor.On("ProcessSessionResults", mock.Anything, mock.Anything, 1).
		Return(domain.ProcessSummary{}, domain.Forbidden("not yours"))
	status.On("MarkRunFailed", mock.Anything, "run-1", "not yours").Return(nil)

	assert.NoError(t, w.HandleMessage(context.Background(), processMessage()))
	status.AssertExpectations(t)
}

func TestHandleMessage_UnknownType(t *testing.T) {
	processor := new(MockSessionProcessor)
	status := new(MockRunStatusRepository)
	w := newTestWorker(nil, processor, status)

	err := w.HandleMessage(context.Background(), domain.ProcessMessage{Type: "page_data"})

	assert.NoError(t, err)
	processor.AssertNotCalled(t, "ProcessSessionResults", mock.Anything, mock.Anything, mock.Anything)
	status.AssertNotCalled(t, "MarkRunStarted", mock.Anything, mock.Anything, mock.Anything)
}

func TestPoll_DeletesHandledAndMalformedMessages(t *testing.T) {
	queue := new(MockQueueConsumer)
	processor := new(MockSessionProcessor)
	status := new(MockRunStatusRepository)
	w := newTestWorker(queue, processor, status)

	okHandle := aws.String("ok")
	badHandle := aws.String("bad")
	retryHandle := aws.String("retry")
	queue.On("ReceiveMessages", mock.Anything, "http://queue", int32(10), int32(5)).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			{Body: aws.String(`{"type":"process_session","session_id":1,"user_id":10,"run_id":"a"}`), ReceiptHandle: okHandle},
			{Body: aws.String(`{not json`), ReceiptHandle: badHandle},
			{Body: aws.String(`{"type":"process_session","session_id":2,"user_id":10,"run_id":"b"}`), ReceiptHandle: retryHandle},
		},
	}, nil).Once()
	status.On("MarkRunStarted", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	status.On("MarkRunCompleted", mock.Anything, "a", mock.Anything).Return(nil)
	status.On("MarkRunFailed", mock.Anything, "b", mock.Anything).Return(nil)
	processor.On("ProcessSessionResults", mock.Anything, mock.Anything, 1).Return(domain.NewProcessSummary(1, 0), nil)
	processor.On("ProcessSessionResults", mock.Anything, mock.Anything, 2).
		Return(domain.ProcessSummary{}, domain.InternalError("Failed to process session results", nil))
	queue.On("DeleteMessage", mock.Anything, "http://queue", okHandle).Return(nil).Once()
	queue.On("DeleteMessage", mock.Anything, "http://queue", badHandle).Return(nil).Once()

	w.poll(context.Background())

	queue.AssertExpectations(t)
	queue.AssertNotCalled(t, "DeleteMessage", mock.Anything, "http://queue", retryHandle)
}

func TestStart_StopsOnCancel(t *testing.T) {
	queue := new(MockQueueConsumer)
	w := newTestWorker(queue, new(MockSessionProcessor), new(MockRunStatusRepository))

	ctx, cancel := context.WithCancel(context.Background())
	queue.On("ReceiveMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, errors.New("context canceled"))

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
