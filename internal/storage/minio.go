// Package storage adapts the object storage provider that holds the
// original uploaded files and issues time-limited download links.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"docchat/internal/config"
)

// Signer issues a time-limited signed download URL for a stored object.
type Signer interface {
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// MinioStore is the MinIO-backed object storage adapter.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the object storage endpoint and makes sure
// the bucket exists.
func NewMinioStore(ctx context.Context, cfg *config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %q: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("Created storage bucket")
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// SignedURL returns a presigned download link valid for ttl.
func (s *MinioStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, path, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("signing URL for %s: %w", path, err)
	}
	return signed.String(), nil
}

// Save stores the original uploaded file under path.
func (s *MinioStore) Save(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("saving object %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int64("size", size).Msg("Object stored")
	return nil
}
