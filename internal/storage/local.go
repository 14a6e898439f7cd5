package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage writes images to a directory on disk, for development
// and single-node deployments
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates a disk-backed storage rooted at dir.
// Files are served back under baseURL (e.g. http://localhost:8080/uploads).
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalStorage{
		dir:     dir,
		baseURL: baseURL,
	}, nil
}

// UploadImage writes an image under {dir}/{year}/{month}/{userID}/
func (l *LocalStorage) UploadImage(ctx context.Context, data []byte, userID, originalFilename string) (*UploadResult, error) {
	extension := filepath.Ext(originalFilename)
	if _, err := imageContentType(extension); err != nil {
		return nil, err
	}

	fileID := uuid.New().String()
	now := time.Now()
	key := fmt.Sprintf("%d/%02d/%s/%s%s",
		now.Year(), now.Month(), userID, fileID, strings.ToLower(extension))

	fullPath := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	publicURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(l.baseURL, "/"), key)

	return &UploadResult{
		Key:  key,
		URL:  publicURL,
		Size: int64(len(data)),
	}, nil
}

// DeleteImage removes an image from disk
func (l *LocalStorage) DeleteImage(ctx context.Context, key string) error {
	fullPath := filepath.Join(l.dir, filepath.FromSlash(key))

	// Refuse keys that escape the upload directory
	if rel, err := filepath.Rel(l.dir, fullPath); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("invalid storage key: %s", key)
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
