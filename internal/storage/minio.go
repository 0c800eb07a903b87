package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ignatzorin/market-backoffice/internal/config"
	"github.com/ignatzorin/market-backoffice/internal/logger"
)

// MinioStorage хранит вложения в S3-совместимом бакете и отдаёт подписанные ссылки.
type MinioStorage struct {
	client         *minio.Client
	bucket         string
	maxUploadBytes int64
}

// NewMinioStorage подключается к MinIO и создаёт бакет, если его нет.
func NewMinioStorage(ctx context.Context, cfg config.MinioConfig, maxUploadMB int64) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось подключиться к MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось проверить бакет %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: не удалось создать бакет %s: %w", cfg.Bucket, err)
		}
		logger.Log.WithField("bucket", cfg.Bucket).Info("minio bucket created")
	}

	return &MinioStorage{
		client:         client,
		bucket:         cfg.Bucket,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

func (s *MinioStorage) Save(ctx context.Context, owner uuid.UUID, name, contentType string, size int64, r io.Reader) (string, error) {
	if size > s.maxUploadBytes {
		return "", ErrTooLarge
	}

	key := objectKey(owner, name, time.Now())
	info, err := s.client.PutObject(ctx, s.bucket, key, io.LimitReader(r, s.maxUploadBytes+1), size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storage: не удалось загрузить объект: %w", err)
	}
	if info.Size > s.maxUploadBytes {
		_ = s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
		return "", ErrTooLarge
	}
	return key, nil
}

// URL выдаёт подписанную ссылку на чтение объекта.
func (s *MinioStorage) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !validKey(key) {
		return "", ErrNotFound
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("storage: не удалось подписать ссылку: %w", err)
	}
	return u.String(), nil
}

func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: не удалось удалить объект: %w", err)
	}
	return nil
}
