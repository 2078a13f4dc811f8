// Package delivery uploads finished report artifacts to Google Cloud
// Storage. Delivery is optional and best-effort: a run whose upload fails
// still completes with the local artifact.
package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Uploader pushes a local artifact to remote storage and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, objectName, filePath string) (string, error)
	Close() error
}

const uploadTimeout = 2 * time.Minute

// GCSUploader uploads artifacts into a fixed bucket, optionally under a
// prefix. The client is created once and reused across uploads.
type GCSUploader struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSUploader creates an uploader for the given bucket. When
// credentialsFile is empty, Application Default Credentials are used.
func NewGCSUploader(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSUploader{client: client, bucket: bucket, prefix: prefix}, nil
}

// Upload copies the local file into the bucket under objectName and returns
// the resulting gs:// URI.
func (u *GCSUploader) Upload(ctx context.Context, objectName, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	if u.prefix != "" {
		objectName = path.Join(u.prefix, objectName)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
}

// Close releases the underlying storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

var _ Uploader = (*GCSUploader)(nil)
