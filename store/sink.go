package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink persists generated init/media segment bytes under a key.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
}

// LocalSink writes segments under a root output directory.
type LocalSink struct {
	Root string
}

// Put writes data to Root/key, creating parent directories as needed.
func (s LocalSink) Put(_ context.Context, key string, data []byte) error {
	path := filepath.Join(s.Root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("local sink %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("local sink %s: %w", key, err)
	}
	return nil
}

// Exists reports whether Root/key exists.
func (s LocalSink) Exists(_ context.Context, key string) bool {
	_, err := os.Stat(filepath.Join(s.Root, key))
	return err == nil
}

// Delete removes Root/key.
func (s LocalSink) Delete(_ context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.Root, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local sink %s: %w", key, err)
	}
	return nil
}

// S3Sink writes segments to an S3 bucket.
type S3Sink struct {
	Client *s3.Client
	Bucket string
}

// Put uploads data to the bucket under key.
func (s S3Sink) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 sink %s: %w", key, err)
	}
	return nil
}

// Exists checks for the object's presence via HeadObject.
func (s S3Sink) Exists(ctx context.Context, key string) bool {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

// Delete removes the object from the bucket.
func (s S3Sink) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 sink delete %s: %w", key, err)
	}
	return nil
}
