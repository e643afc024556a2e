package reportexport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Uploader stores and fetches rendered reports.
type Uploader interface {
	// Upload writes data to bucket/objectName and returns its gs:// URI.
	Upload(ctx context.Context, bucket, objectName, contentType string, data []byte) (string, error)

	// Fetch downloads the object behind a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
}

// GCSUploader is the Cloud Storage implementation of Uploader.
type GCSUploader struct {
	client *storage.Client
}

// NewGCSUploader creates a storage client using Application Default Credentials.
func NewGCSUploader(ctx context.Context) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSUploader: create storage client: %w", err)
	}
	return &GCSUploader{client: client}, nil
}

// Close closes the storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// Upload implements Uploader.
func (u *GCSUploader) Upload(ctx context.Context, bucket, objectName, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := u.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, objectName), nil
}

// Fetch implements Uploader.
func (u *GCSUploader) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := u.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// FilenameFromGCSURI returns the last path element of a gs:// URI.
// e.g., "gs://bucket/reports/2025/03/ali.json" → "ali.json"
func FilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

var _ Uploader = (*GCSUploader)(nil)
