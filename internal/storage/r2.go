package storage

import (
	"context"
	"fmt"
	"log"

	"challan-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client builds a client for the Cloudflare R2 (or any S3 compatible)
// endpoint in cfg.R2
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	if !cfg.R2Configured() {
		return nil, fmt.Errorf("r2 is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2.AccessKey,
			cfg.R2.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.R2.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure r2 client: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2.Endpoint)
		o.UsePathStyle = true
	}), nil
}

// NewTree returns the storage tree selected by storage.backend, or nil
// when the folder strategy cannot be used.
func NewTree(ctx context.Context, cfg *config.Config, client S3API) (Tree, error) {
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		t, err := NewLocalTree(cfg.Storage.LocalRoot)
		if err != nil {
			return nil, err
		}
		log.Printf("[Storage] Using local folder tree at %s", t.RootPath())
		return t, nil
	case config.BackendR2:
		if client == nil {
			return nil, fmt.Errorf("r2 backend selected without an s3 client")
		}
		log.Printf("[Storage] Using bucket tree s3://%s/%s", cfg.R2.Bucket, cfg.R2.Prefix)
		return NewBucketTree(client, cfg.R2.Bucket, cfg.R2.Prefix), nil
	}
	return nil, nil
}
