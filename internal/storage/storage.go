// Package storage handles image uploads for avatars and post covers.
// Two backends are supported: local disk for development and S3 for
// production, selected via STORAGE_BACKEND.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// UploadResult contains the result of an upload
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Storage abstracts the image storage backend
type Storage interface {
	// UploadImage stores image data and returns its public URL
	UploadImage(ctx context.Context, data []byte, userID, originalFilename string) (*UploadResult, error)

	// DeleteImage removes a previously uploaded image by key
	DeleteImage(ctx context.Context, key string) error
}

// allowed image extensions and their MIME types
var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// imageContentType returns the MIME type for an image extension,
// or an error for unsupported formats
func imageContentType(extension string) (string, error) {
	ct, ok := imageContentTypes[strings.ToLower(extension)]
	if !ok {
		return "", fmt.Errorf("unsupported image format: %s", extension)
	}
	return ct, nil
}
