package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/dalemusser/waffle/pantry/storage"
)

// newS3 resolves the default AWS credential chain before building the
// backend, so a misconfigured deployment fails at startup instead of on the
// first upload.
func newS3(ctx context.Context, cfg Config) (storage.Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("s3 bucket is empty")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, config.WithRegion(cfg.S3Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("aws credentials: %w", err)
	}
	return storage.NewS3(ctx, storage.S3Config{
		Bucket:               cfg.S3Bucket,
		Region:               awsCfg.Region,
		Prefix:               cfg.S3Prefix,
		ServerSideEncryption: "AES256",
	})
}
