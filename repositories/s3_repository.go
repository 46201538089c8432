package repositories

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const rawResponseKey = "serp/query-%d/execution-%d.json"

// S3Archive keeps the untouched search API responses for audit.
type S3Archive struct {
	client *s3.Client
	bucket string
}

func NewS3Archive(client *s3.Client, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

func NewS3Client(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}

func (r *S3Archive) ArchiveRawResponse(ctx context.Context, queryID, executionID int, body []byte) (string, error) {
	key := fmt.Sprintf(rawResponseKey, queryID, executionID)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive raw response for execution %d: %w", executionID, err)
	}
	return fmt.Sprintf("s3://%s/%s", r.bucket, key), nil
}
