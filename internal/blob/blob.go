// Package blob archives raw uploaded files. The core writes each upload
// once for audit and re-reads it only on the document extraction path.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Archive stores and fetches raw upload files by object key.
type Archive interface {
	Store(ctx context.Context, key string, data []byte, contentType string) error
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// RawKey builds the object key for an uploaded file.
func RawKey(userID, uploadID, fileName string) string {
	return fmt.Sprintf("uploads/raw/%s/%s/%s", userID, uploadID, fileName)
}

// GCSArchive implements Archive on a Google Cloud Storage bucket.
// Application Default Credentials are assumed.
type GCSArchive struct {
	client *storage.Client
	bucket string
}

// NewGCSArchive creates an archive over an existing storage client.
func NewGCSArchive(client *storage.Client, bucket string) *GCSArchive {
	return &GCSArchive{client: client, bucket: bucket}
}

// Store writes an object, finalizing the upload on Close.
func (a *GCSArchive) Store(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s: %w", key, err)
	}
	return nil
}

// Fetch reads an object's bytes.
func (a *GCSArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	r, err := a.client.Bucket(a.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object reader %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

var _ Archive = (*GCSArchive)(nil)
