// Package minio implements storage.ObjectStorage on an S3-compatible
// bucket through the MinIO client.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/phrazzld/measure-api/internal/config"
	"github.com/phrazzld/measure-api/internal/storage"
)

// objectAPI is the subset of *miniogo.Client used here.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64,
		opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts miniogo.GetObjectOptions) (*miniogo.Object, error)
	RemoveObject(ctx context.Context, bucket, key string, opts miniogo.RemoveObjectOptions) error
}

// Storage stores objects in a single bucket.
type Storage struct {
	client objectAPI
	bucket string
	logger *slog.Logger
}

var _ storage.ObjectStorage = (*Storage)(nil)

// New connects to the configured endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return newStorage(client, cfg.Bucket, logger), nil
}

func newStorage(client objectAPI, bucket string, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		client: client,
		bucket: bucket,
		logger: logger.With(slog.String("component", "object_storage")),
	}
}

// Put implements storage.ObjectStorage.Put
func (s *Storage) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}
	s.logger.Debug("object stored", slog.String("key", key), slog.Int("size", len(data)))
	return nil
}

// Get implements storage.ObjectStorage.Get
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(key, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(key, err)
	}
	return data, nil
}

// Delete implements storage.ObjectStorage.Delete. Deleting a missing key succeeds.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(key, err)
	}
	return nil
}

func mapError(key string, err error) error {
	switch miniogo.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	return fmt.Errorf("object storage operation on %q failed: %w", key, err)
}
