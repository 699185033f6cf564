package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBackend keeps the blob as a single object in a Cloud Storage bucket.
type GCSBackend struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSBackend creates a backend using application default credentials.
func NewGCSBackend(ctx context.Context, bucket, object string) (*GCSBackend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBackend{client: client, bucket: bucket, object: object}, nil
}

func (b *GCSBackend) Describe() string {
	return fmt.Sprintf("gs://%s/%s", b.bucket, b.object)
}

// Close releases the storage client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}

func (b *GCSBackend) Push(ctx context.Context, blob []byte) error {
	w := b.client.Bucket(b.bucket).Object(b.object).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(blob); err != nil {
		w.Close()
		return &SyncError{Op: "push", Err: err}
	}
	if err := w.Close(); err != nil {
		return &SyncError{Op: "push", Err: err}
	}
	return nil
}

func (b *GCSBackend) Pull(ctx context.Context) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(b.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNoBackup
	}
	if err != nil {
		return nil, &SyncError{Op: "restore", Err: err}
	}
	defer r.Close()

	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, &SyncError{Op: "restore", Err: err}
	}
	if len(blob) == 0 {
		return nil, ErrNoBackup
	}
	return blob, nil
}
