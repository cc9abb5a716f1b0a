package storage

import (
	"context"
	"io"
	"path"
)

// ObjectStorage is the blob store that holds generated image bytes when
// remote storage is enabled.
type ObjectStorage interface {
	// Upload stores size bytes from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the public URL of key, or "" when no public URL is configured.
	GetURL(key string) string

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}

// ImageKey returns the object key for an image id under prefix.
func ImageKey(prefix, id, contentType string) string {
	return path.Join(prefix, id+extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
