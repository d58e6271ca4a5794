// Package gcs uploads finished guide documents to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to publish guides to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// Uploader writes guide documents to a configured GCS bucket.
type Uploader struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed guide uploader.
func New(client *storage.Client, cfg Config) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Upload stores the guide under <prefix>/<name> and returns its gs:// URI.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	path := objectName(u.prefix, name)
	if path == "" {
		return "", fmt.Errorf("object name is required")
	}
	w := u.client.Bucket(u.bucket).Object(path).NewWriter(ctx)
	w.ContentType = "application/xml"
	if _, err := io.Copy(w, r); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("copy guide: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy guide: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, path), nil
}

func objectName(prefix, name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return ""
	}
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
