package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/barrie-cork/thesis-swarm/config"
	"github.com/barrie-cork/thesis-swarm/repositories"
	"github.com/barrie-cork/thesis-swarm/services"
)

// app holds the clients and services shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	dbRepo *repositories.PostgresDBRepository
	redis  *redis.Client
	sqs    *repositories.AWSSQSClient

	pipeline *services.PipelineService
	results  *services.ResultsService
	search   *services.SearchService
	worker   *services.ProcessingWorker
}

func newApp(ctx context.Context) (*app, error) {
	loadEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		dbRepo: repositories.NewDBRepository(db, cfg.BatchSize),
		redis:  repositories.NewRedisClient(cfg.RedisHost, cfg.RedisPort),
		sqs:    repositories.NewSQSClient(sqs.NewFromConfig(awsCfg)),
	}

	pipelineOpts := []services.PipelineOption{
		services.WithResultRepository(a.dbRepo),
		services.WithSessionLocker(repositories.NewRedisSessionLocker(a.redis, cfg.SessionLockTTL)),
		services.WithLogger(logger),
	}
	if cfg.OpenSearchURL != "" {
		indexer, err := newOpenSearchRepository(cfg)
		if err != nil {
			return nil, err
		}
		pipelineOpts = append(pipelineOpts, services.WithResultIndexer(indexer))
	}
	if cfg.InputQueueURL != "" {
		pipelineOpts = append(pipelineOpts, services.WithProcessQueue(repositories.NewSQSProcessQueue(a.sqs, cfg.InputQueueURL)))
	}
	a.pipeline = services.NewPipelineService(pipelineOpts...)

	a.results = services.NewResultsService(a.dbRepo)

	searchOpts := []services.SearchOption{
		services.WithExecutionRepository(a.dbRepo),
		services.WithSearchProvider(repositories.NewSerperClient(cfg.SerperURL, cfg.SerperAPIKey, cfg.SerperMinInterval)),
		services.WithDefaultMaxResults(cfg.DefaultMaxResults),
		services.WithSearchLogger(logger),
	}
	if cfg.ArchiveBucket != "" {
		archive := repositories.NewS3Archive(repositories.NewS3Client(awsCfg), cfg.ArchiveBucket)
		searchOpts = append(searchOpts, services.WithResponseArchive(archive))
	}
	a.search = services.NewSearchService(searchOpts...)

	a.worker = services.NewProcessingWorker(
		services.WithQueueConsumer(a.sqs, cfg.InputQueueURL),
		services.WithSessionProcessor(a.pipeline),
		services.WithRunStatusRepository(repositories.NewDynamoDBClient(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, logger)),
		services.WithWorkerLogger(logger),
	)

	return a, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis client", "error", err)
	}
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSEndpointURL != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.AWSEndpointURL,
				SigningRegion: cfg.AWSRegion,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(customResolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return awsCfg, nil
}

func newOpenSearchRepository(cfg *config.Config) (*repositories.OpenSearchRepository, error) {
	client, err := opensearch.NewClient(openSearchConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("error creating OpenSearch client: %w", err)
	}
	return repositories.NewOpenSearchRepository(client, cfg.OpenSearchIndex), nil
}

// openSearchConfig skips certificate verification only when
// OPENSEARCH_INSECURE is set, for local clusters with self-signed certs.
func openSearchConfig(cfg *config.Config) opensearch.Config {
	osCfg := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
	}
	if cfg.OpenSearchInsecure {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return osCfg
}
