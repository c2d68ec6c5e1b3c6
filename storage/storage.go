package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Source fetches the rule corpus definition file for ingestion. The audit
// path itself persists nothing; only the ingestion job reads from here.
type Source interface {
	// Fetch opens the rules file at the given key (a local path or an
	// object key, depending on the backend).
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}

// SourceType represents the rules-source backend type
type SourceType string

const (
	SourceTypeLocal SourceType = "local"
	SourceTypeS3    SourceType = "s3"
)

// SourceConfig holds configuration for the rules source
type SourceConfig struct {
	Type         SourceType
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// NewSource creates a rules source based on configuration
func NewSource(cfg SourceConfig) (Source, error) {
	switch cfg.Type {
	case SourceTypeLocal:
		return NewLocalSource(), nil
	case SourceTypeS3:
		return NewS3Source(cfg)
	default:
		return nil, fmt.Errorf("unknown rules source type: %s", cfg.Type)
	}
}

// NewSourceFromEnv creates a rules source from environment variables
func NewSourceFromEnv() (Source, error) {
	sourceType := os.Getenv("RULES_SOURCE")
	if sourceType == "" {
		sourceType = "local" // Default to local for development
	}

	cfg := SourceConfig{
		Type: SourceType(sourceType),
	}

	switch SourceType(sourceType) {
	case SourceTypeLocal:
		return NewLocalSource(), nil

	case SourceTypeS3:
		cfg.S3Bucket = os.Getenv("RULES_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1" // Default region
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return nil, errors.New("RULES_S3_BUCKET environment variable is required for S3 rules source")
		}

		return NewS3Source(cfg)

	default:
		return nil, fmt.Errorf("unknown rules source type: %s", sourceType)
	}
}
