package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/barrie-cork/thesis-swarm/domain"
)

type MockDynamoDB struct {
	mock.Mock
}

func (m *MockDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

func statusOf(input *dynamodb.UpdateItemInput) string {
	v, ok := input.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return v.Value
}

func TestNewDynamoDBClient(t *testing.T) {
	client := NewDynamoDBClient(nil, "test-table", nil)
	assert.NotNil(t, client)
	assert.Equal(t, "test-table", client.tableName)
}

func TestRunStatus_NoTable(t *testing.T) {
	client := NewDynamoDBClient(nil, "", nil)
	ctx := context.Background()
	assert.NoError(t, client.MarkRunStarted(ctx, "run-1", 7))
	assert.NoError(t, client.MarkRunCompleted(ctx, "run-1", domain.NewProcessSummary(1, 0)))
	assert.NoError(t, client.MarkRunFailed(ctx, "run-1", "boom"))
}

func TestMarkRunStarted_Success(t *testing.T) {
	mockDB := new(MockDynamoDB)
	client := NewDynamoDBClient(mockDB, "test-table", nil)

	mockDB.On("UpdateItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.UpdateItemInput) bool {
		return *input.TableName == "test-table" && input.Key["run_id"] != nil && statusOf(input) == domain.RunStatusRunning
	}), mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)

	err := client.MarkRunStarted(context.Background(), "run-1", 7)
	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestMarkRunCompleted_Success(t *testing.T) {
	mockDB := new(MockDynamoDB)
	client := NewDynamoDBClient(mockDB, "test-table", nil)

	mockDB.On("UpdateItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.UpdateItemInput) bool {
		p, _ := input.ExpressionAttributeValues[":p"].(*types.AttributeValueMemberN)
		return statusOf(input) == domain.RunStatusCompleted && p != nil && p.Value == "3"
	}), mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)

	err := client.MarkRunCompleted(context.Background(), "run-1", domain.NewProcessSummary(3, 1))
	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestMarkRunFailed_Success(t *testing.T) {
	mockDB := new(MockDynamoDB)
	client := NewDynamoDBClient(mockDB, "test-table", nil)

	mockDB.On("UpdateItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.UpdateItemInput) bool {
		return statusOf(input) == domain.RunStatusFailed && input.ExpressionAttributeNames["#e"] == "error"
	}), mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)

	err := client.MarkRunFailed(context.Background(), "run-1", "boom")
	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestRunStatus_Error(t *testing.T) {
	mockDB := new(MockDynamoDB)
	client := NewDynamoDBClient(mockDB, "test-table", nil)

	mockDB.On("UpdateItem", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dynamo error"))

	err := client.MarkRunStarted(context.Background(), "run-1", 7)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update run status")

	err = client.MarkRunFailed(context.Background(), "run-1", "boom")
	assert.Error(t, err)
}
