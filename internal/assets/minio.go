// Package assets stores video thumbnail images in S3-compatible object
// storage. Thumbnails live outside Postgres because they are binary, mutable,
// and carry no version history.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("asset not found")

// Store uploads and serves video thumbnails.
type Store struct {
	client *minio.Client
	bucket string
}

// Config holds object storage connection parameters.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewStore connects to the object store and ensures the bucket exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("assets: created bucket %s", cfg.Bucket)
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// PutThumbnail stores the thumbnail for a video, replacing any previous one.
func (s *Store) PutThumbnail(ctx context.Context, videoID string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, thumbnailKey(videoID), reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload thumbnail for video %s: %w", videoID, err)
	}
	return nil
}

// GetThumbnail returns the thumbnail body and content type. The caller must
// close the reader.
func (s *Store) GetThumbnail(ctx context.Context, videoID string) (io.ReadCloser, string, error) {
	object, err := s.client.GetObject(ctx, s.bucket, thumbnailKey(videoID), minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get thumbnail for video %s: %w", videoID, err)
	}

	// GetObject is lazy; Stat performs the request and surfaces NoSuchKey.
	stat, err := object.Stat()
	if err != nil {
		_ = object.Close()
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) && minioErr.Code == "NoSuchKey" {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("stat thumbnail for video %s: %w", videoID, err)
	}
	return object, stat.ContentType, nil
}

// DeleteThumbnail removes a video's thumbnail. Missing objects are not an error.
func (s *Store) DeleteThumbnail(ctx context.Context, videoID string) error {
	err := s.client.RemoveObject(ctx, s.bucket, thumbnailKey(videoID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("delete thumbnail for video %s: %w", videoID, err)
	}
	return nil
}

func thumbnailKey(videoID string) string {
	return fmt.Sprintf("thumbnails/%s", videoID)
}
