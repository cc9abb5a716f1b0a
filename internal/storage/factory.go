package storage

import (
	"strings"

	"github.com/timmy/cardsmith/internal/config"
)

// NewStorage creates an ObjectStorage from configuration.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
// Returns:
//   - ObjectStorage: initialized client, or nil when storage is disabled.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *config.StorageConfig) (ObjectStorage, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	storeType := StorageType(cfg.Type)
	if storeType == "" {
		storeType = detectStorageType(cfg.Endpoint)
	}

	return NewS3Storage(&S3Config{
		Type:      storeType,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	})
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"), endpoint == "":
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
