// Package filestore stores issue attachments in an S3-compatible bucket.
package filestore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"civicx-be/apperr"
	"civicx-be/config"
)

type Store struct {
	client *minio.Client
	bucket string
}

func New(cfg config.Config) (*Store, error) {
	client, err := minio.New(cfg.BucketEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.BucketAccessKey, cfg.BucketSecretKey, ""),
		Secure: cfg.BucketUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket client: %w", err)
	}
	return &Store{client: client, bucket: cfg.BucketName}, nil
}

// EnsureBucket creates the attachment bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
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

// Upload stores the file and returns its generated id.
func (s *Store) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (string, error) {
	fileID := uuid.NewString()
	_, err := s.client.PutObject(ctx, s.bucket, fileID, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransport, "failed to upload file", err)
	}
	return fileID, nil
}

// ViewURL returns the public URL for an uploaded file.
func (s *Store) ViewURL(fileID string) string {
	endpoint := s.client.EndpointURL()
	return fmt.Sprintf("%s/%s/%s", endpoint.String(), s.bucket, url.PathEscape(fileID))
}

// DownloadURL returns a presigned URL valid for the given duration.
func (s *Store) DownloadURL(ctx context.Context, fileID string, expiry time.Duration) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, fileID, expiry, url.Values{})
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransport, "failed to presign download", err)
	}
	return presigned.String(), nil
}
