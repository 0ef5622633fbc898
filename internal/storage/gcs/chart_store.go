// Package gcs provides a chart sink backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
	chartstorage "github.com/JakeFAU/hot100-crawler/internal/storage"
)

// Config captures the bucket layout.
type Config struct {
	Bucket string
	// Prefix is prepended to every object name, e.g. "billboard".
	Prefix string
}

// ChartStore uploads chart JSON objects to a bucket.
type ChartStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed chart store.
func New(client *storage.Client, cfg Config) (*ChartStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &ChartStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Name identifies the sink in logs and errors.
func (s *ChartStore) Name() string {
	return "gcs"
}

// SaveChart uploads the chart to {prefix}/hot-100/{date}.json.
func (s *ChartStore) SaveChart(ctx context.Context, page billboard.ChartPage) error {
	rel, err := chartstorage.ObjectPath(page)
	if err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	data, err := chartstorage.Encode(page)
	if err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	if _, err := s.putObject(ctx, s.objectName(rel), chartstorage.ContentType, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

func (s *ChartStore) objectName(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

// putObject uploads r and returns a gs:// URI.
func (s *ChartStore) putObject(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}
