package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string
	BatchSize   int
	Port        string
	LogLevel    string

	InputQueueURL string
	DynamoDBTable string

	RedisHost      string
	RedisPort      string
	SessionLockTTL time.Duration

	OpenSearchURL      string
	OpenSearchIndex    string
	OpenSearchInsecure bool

	SerperAPIKey      string
	SerperURL         string
	DefaultMaxResults int
	SerperMinInterval time.Duration

	ArchiveBucket  string
	AWSEndpointURL string
	AWSRegion      string
}

// Load reads configuration from environment variables, falling back to
// defaults for everything except DATABASE_URL.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:        v.GetString("database_url"),
		BatchSize:          v.GetInt("db_batch_size"),
		Port:               v.GetString("port"),
		LogLevel:           v.GetString("log_level"),
		InputQueueURL:      v.GetString("input_queue_url"),
		DynamoDBTable:      v.GetString("dynamodb_table"),
		RedisHost:          v.GetString("redis_host"),
		RedisPort:          v.GetString("redis_port"),
		SessionLockTTL:     v.GetDuration("session_lock_ttl"),
		OpenSearchURL:      v.GetString("opensearch_url"),
		OpenSearchIndex:    v.GetString("opensearch_index"),
		OpenSearchInsecure: v.GetBool("opensearch_insecure"),
		SerperAPIKey:       v.GetString("serper_api_key"),
		SerperURL:          v.GetString("serper_url"),
		DefaultMaxResults:  v.GetInt("default_max_results"),
		SerperMinInterval:  v.GetDuration("serper_min_interval"),
		ArchiveBucket:      v.GetString("archive_bucket"),
		AWSEndpointURL:     v.GetString("aws_endpoint_url"),
		AWSRegion:          v.GetString("aws_region"),
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = 100
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_batch_size", 25)
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("session_lock_ttl", 5*time.Minute)
	v.SetDefault("opensearch_index", "processed_results")
	v.SetDefault("opensearch_insecure", false)
	v.SetDefault("serper_url", "https://google.serper.dev/search")
	v.SetDefault("default_max_results", 100)
	v.SetDefault("serper_min_interval", time.Second)
	v.SetDefault("aws_region", "us-east-1")
}
