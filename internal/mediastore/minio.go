package mediastore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store on MinIO/S3 compatible storage.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// MinioConfig carries the connection settings for the object store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL overrides the URL prefix for stored assets. When empty,
	// URLs are derived from the endpoint and bucket.
	PublicBaseURL string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(cfg MinioConfig, logger *slog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// Upload stores a fully buffered asset under a fresh key.
func (s *MinioStore) Upload(ctx context.Context, data []byte, contentType string, opts UploadOptions) (*UploadResult, error) {
	return s.UploadStream(ctx, bytes.NewReader(data), int64(len(data)), contentType, opts)
}

// UploadStream stores an asset from a reader. The result is only returned
// once PutObject has confirmed the write.
func (s *MinioStore) UploadStream(ctx context.Context, r io.Reader, size int64, contentType string, opts UploadOptions) (*UploadResult, error) {
	folder := opts.Folder
	if folder == "" {
		folder = FolderPhotos
	}
	key := path.Join(folder, uuid.NewString()+extensionFor(contentType))

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	s.logger.Debug("media stored", "key", info.Key, "size", info.Size, "resource_type", opts.ResourceType)

	return &UploadResult{
		SecureURL:  s.baseURL + "/" + info.Key,
		ExternalID: info.Key,
	}, nil
}

// Delete removes an asset. A missing object maps to ErrNotFound so that
// cleanup after a partial failure stays idempotent.
func (s *MinioStore) Delete(ctx context.Context, externalID string, _ DeleteOptions) error {
	_, err := s.client.StatObject(ctx, s.bucket, externalID, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return ErrNotFound
		}
		return fmt.Errorf("stat object %s: %w", externalID, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, externalID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", externalID, err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	}
	return ""
}
