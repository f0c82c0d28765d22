package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
)

// BlobStore is the object-storage capability the pipeline depends on. Blobs
// are immutable once uploaded.
type BlobStore interface {
	DownloadToTemp(ctx context.Context, objectName string) (string, error)
	Remove(ctx context.Context, objectName string) error
}

// ObjectStorage keeps document blobs in an S3-compatible store.
type ObjectStorage struct {
	client *minio.Client
	bucket string
}

func NewObjectStorage(cfg *config.Config) (*ObjectStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	return &ObjectStorage{client: client, bucket: cfg.MinioBucket}, nil
}

func (s *ObjectStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *ObjectStorage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectName, err)
	}
	return nil
}

// DownloadToTemp streams an object into a local temp file and returns its
// path. The caller is responsible for removing the file.
func (s *ObjectStorage) DownloadToTemp(ctx context.Context, objectName string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get object %s: %w", objectName, err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "chatwithdocs-*"+filepath.Ext(objectName))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", objectName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

func (s *ObjectStorage) Remove(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", objectName, err)
	}
	return nil
}

// PresignedGetURL returns a time-limited download URL for an object.
func (s *ObjectStorage) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectName, err)
	}
	return u.String(), nil
}
