// Package store provides source and sink implementations for reading
// an MP4's bytes and writing generated segments, backed by either the
// local filesystem or S3.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source reads the full contents of a source MP4 by key.
type Source interface {
	Open(ctx context.Context, key string) ([]byte, error)
}

// LocalSource reads files from a root directory on the local
// filesystem.
type LocalSource struct {
	Root string
}

// Open reads Root/key fully into memory.
func (s LocalSource) Open(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, key))
	if err != nil {
		return nil, fmt.Errorf("local source %s: %w", key, err)
	}
	return data, nil
}

// S3Source reads objects from an S3 bucket, fully into memory, since
// the core's generate_* operations require a contiguous source_bytes
// buffer.
type S3Source struct {
	Client *s3.Client
	Bucket string
}

// NewS3Client loads the default AWS SDK configuration for the given
// region and constructs an S3 client.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Open fetches key from the bucket and reads it fully into memory.
func (s S3Source) Open(ctx context.Context, key string) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 source %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 source %s: reading body: %w", key, err)
	}
	return data, nil
}
