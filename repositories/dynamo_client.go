package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/barrie-cork/thesis-swarm/domain"
)

type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBClient records the status of processing runs, keyed by run_id.
type DynamoDBClient struct {
	client    DynamoDBAPI
	tableName string
	logger    *slog.Logger
}

func NewDynamoDBClient(client DynamoDBAPI, tableName string, logger *slog.Logger) *DynamoDBClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DynamoDBClient{
		client:    client,
		tableName: tableName,
		logger:    logger.With("component", "run_status"),
	}
}

func (d *DynamoDBClient) MarkRunStarted(ctx context.Context, runID string, sessionID int) error {
	if d.tableName == "" {
		d.logger.Warn("DYNAMODB_TABLE not configured, skipping run status update", "run_id", runID)
		return nil
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
		UpdateExpression: aws.String("SET #s = :status, session_id = :sid, started_at = :at"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: domain.RunStatusRunning},
			":sid":    &types.AttributeValueMemberN{Value: strconv.Itoa(sessionID)},
			":at":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update run status in DynamoDB for run %s: %w", runID, err)
	}
	return nil
}

func (d *DynamoDBClient) MarkRunCompleted(ctx context.Context, runID string, summary domain.ProcessSummary) error {
	if d.tableName == "" {
		d.logger.Warn("DYNAMODB_TABLE not configured, skipping run status update", "run_id", runID)
		return nil
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
		UpdateExpression: aws.String("SET #s = :status, processed = :p, duplicates_found = :d, completed_at = :cat"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: domain.RunStatusCompleted},
			":p":      &types.AttributeValueMemberN{Value: strconv.Itoa(summary.Processed)},
			":d":      &types.AttributeValueMemberN{Value: strconv.Itoa(summary.DuplicatesFound)},
			":cat":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update run status in DynamoDB for run %s: %w", runID, err)
	}

	d.logger.Info("run completed", "run_id", runID, "processed", summary.Processed, "duplicates_found", summary.DuplicatesFound, "table", d.tableName)
	return nil
}

func (d *DynamoDBClient) MarkRunFailed(ctx context.Context, runID string, reason string) error {
	if d.tableName == "" {
		return nil
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
		UpdateExpression: aws.String("SET #s = :status, #e = :err, completed_at = :cat"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
			"#e": "error",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: domain.RunStatusFailed},
			":err":    &types.AttributeValueMemberS{Value: reason},
			":cat":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update run status in DynamoDB for run %s: %w", runID, err)
	}
	return nil
}
