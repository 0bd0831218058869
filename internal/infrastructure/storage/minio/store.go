// Package minio stores dataset CSVs and ranking snapshots in S3-compatible
// object storage.
package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/molrank/internal/config"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
)

// objectAPI is the slice of the minio client the store uses; tests substitute
// an in-memory double.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ArtifactStore reads and writes CSV artifacts under a single bucket.
type ArtifactStore struct {
	client objectAPI
	bucket string
	logger logging.Logger
}

// NewArtifactStore connects to MinIO and ensures the configured bucket
// exists.
func NewArtifactStore(ctx context.Context, cfg config.MinIOConfig, logger logging.Logger) (*ArtifactStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	store := &ArtifactStore{client: client, bucket: cfg.Bucket, logger: logger}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ensureCtx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket")
	}
	if !exists {
		if err := client.MakeBucket(ensureCtx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket")
		}
		logger.Info("created artifact bucket", logging.String("bucket", cfg.Bucket))
	}

	logger.Info("connected to object storage",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))
	return store, nil
}

// NewArtifactStoreWithClient wraps an existing client, used by tests.
func NewArtifactStoreWithClient(client objectAPI, bucket string, logger logging.Logger) *ArtifactStore {
	return &ArtifactStore{client: client, bucket: bucket, logger: logger}
}

// PutCSV uploads CSV bytes under key.
func (s *ArtifactStore) PutCSV(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to upload %s", key)
	}
	s.logger.Debug("artifact uploaded", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

// GetCSV downloads the object under key.
func (s *ArtifactStore) GetCSV(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "failed to fetch %s", key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "failed to read %s", key)
	}
	return data, nil
}

// Delete removes the object under key.  Deleting a missing object is not an
// error, matching S3 semantics.
func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to delete %s", key)
	}
	return nil
}
