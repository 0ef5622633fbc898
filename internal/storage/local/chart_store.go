// Package local implements a filesystem chart sink.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
	"github.com/JakeFAU/hot100-crawler/internal/storage"
)

// Config captures the parameters for the filesystem chart store.
type Config struct {
	// BaseDir is the root directory charts are written under.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// ChartStore writes one JSON file per chart below BaseDir.
type ChartStore struct {
	baseDir string
}

// New creates the base directory if needed and checks that it is writable.
func New(cfg Config) (*ChartStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}

	return &ChartStore{baseDir: cfg.BaseDir}, nil
}

// Name identifies the sink in logs and errors.
func (s *ChartStore) Name() string {
	return "local"
}

// SaveChart writes the chart to {base}/hot-100/{date}.json, replacing any
// previous copy.
func (s *ChartStore) SaveChart(ctx context.Context, page billboard.ChartPage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	rel, err := storage.ObjectPath(page)
	if err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	data, err := storage.Encode(page)
	if err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	if _, err := s.write(rel, data); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// write stores data at rel below the base directory and returns a file:// URI.
func (s *ChartStore) write(rel string, data []byte) (string, error) {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(rel))

	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}

	// Write to a sibling temp file first so readers never see a partial chart.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".chart-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename file: %w", err)
	}
	return "file://" + fullPath, nil
}
