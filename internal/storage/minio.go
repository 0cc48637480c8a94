package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lumapix/lumapix/pkg/api"
)

// Config holds the connection settings for the minio-backed blob store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseTls    bool
}

// NewMinioBlobStore creates a BlobStore over a minio bucket.
func NewMinioBlobStore(cfg Config) (BlobStore, error) {

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTls,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %v", cfg.Endpoint, err)
	}

	return &minioBlobStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

var _ BlobStore = (*minioBlobStore)(nil)

// minioBlobStore is the concrete implementation of the BlobStore interface
// over a minio bucket.
type minioBlobStore struct {
	client *minio.Client
	bucket string
}

// Save persists the bytes under the given key.
func (s *minioBlobStore) Save(ctx context.Context, key string, data []byte) error {

	if _, err := s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"},
	); err != nil {
		return fmt.Errorf("failed to put object %s: %v", key, err)
	}

	return nil
}

// Find retrieves the bytes stored under the key.
func (s *minioBlobStore) Find(ctx context.Context, key string) ([]byte, error) {

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %v", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// minio surfaces a missing key on read, not on GetObject
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %s: %w", key, api.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read object %s: %v", key, err)
	}

	return data, nil
}

// Replace overwrites the bytes stored under the key.
func (s *minioBlobStore) Replace(ctx context.Context, key string, data []byte) error {
	// object storage puts are full overwrites already
	return s.Save(ctx, key, data)
}

// Delete removes the object stored under the key.
func (s *minioBlobStore) Delete(ctx context.Context, key string) error {

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %v", key, err)
	}

	return nil
}
