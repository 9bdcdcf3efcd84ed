package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBlobStore persists original uploaded PDFs in a Cloud Storage bucket,
// keyed by content digest.
type GCSBlobStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSBlobStore creates a blob store over an existing bucket.
func NewGCSBlobStore(ctx context.Context, bucketName string) (*GCSBlobStore, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSBlobStore{
		client: client,
		bucket: client.Bucket(bucketName),
	}, nil
}

// Close closes the underlying storage client.
func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}

// Put uploads data under key. Objects are content-addressed, so rewriting
// the same key stores identical bytes.
func (s *GCSBlobStore) Put(ctx context.Context, key string, data []byte) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload blob %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize blob %s: %w", key, err)
	}
	return nil
}

// Get downloads the object stored under key, or ErrNotFound.
func (s *GCSBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}
