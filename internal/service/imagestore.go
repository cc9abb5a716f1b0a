package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/repository"
	"github.com/timmy/cardsmith/internal/storage"
	"gorm.io/gorm"
)

// StoredImage is the payload served by the image endpoint.
type StoredImage struct {
	Data        []byte
	ContentType string
}

// ImageStore persists generated images and serves their bytes. Bytes go to
// object storage when it is configured and inline into image_metadata
// otherwise. Records are write-once, so served bytes are cached freely.
type ImageStore struct {
	db     *gorm.DB
	images *repository.ImageRepository
	blobs  storage.ObjectStorage
	prefix string
	cache  *cache.Cache
}

// ImageStoreConfig configures an ImageStore.
type ImageStoreConfig struct {
	// Blobs is optional; nil keeps bytes in the database.
	Blobs           storage.ObjectStorage
	KeyPrefix       string
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

// NewImageStore creates a new ImageStore.
func NewImageStore(db *gorm.DB, images *repository.ImageRepository, cfg ImageStoreConfig) *ImageStore {
	return &ImageStore{
		db:     db,
		images: images,
		blobs:  cfg.Blobs,
		prefix: cfg.KeyPrefix,
		cache:  cache.New(cfg.CacheTTL, cfg.CleanupInterval),
	}
}

// NewImage builds an unsaved record for art with a fresh id, so callers can
// reference the image before it is persisted.
func NewImage(prompt string, art *ArtworkResult, userID string) *domain.ImageMetadata {
	return &domain.ImageMetadata{
		ID:              uuid.NewString(),
		Prompt:          prompt,
		ImageData:       art.Data,
		Width:           art.Width,
		Height:          art.Height,
		ContentType:     art.ContentType,
		Seed:            art.Seed,
		HasNsfwConcepts: fmt.Sprintf("%t", art.HasNsfwConcepts),
		FullResult:      art.Response,
		UserID:          userID,
	}
}

// Save persists img on its own.
func (s *ImageStore) Save(ctx context.Context, img *domain.ImageMetadata) (*domain.ImageMetadata, error) {
	if err := s.SaveWith(ctx, img, nil); err != nil {
		return nil, err
	}
	return img, nil
}

// SaveWith persists img and runs within in the same database transaction.
// If within fails nothing is persisted, including any uploaded blob.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - img: record to persist; ID and CreatedAt are filled if unset.
//   - within: optional work that must commit together with the image.
//
// Returns:
//   - error: *domain.PersistenceError for storage failures, or within's error unchanged.
func (s *ImageStore) SaveWith(ctx context.Context, img *domain.ImageMetadata, within func(tx *gorm.DB) error) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	data := img.ImageData

	uploaded := ""
	if s.blobs != nil {
		key := storage.ImageKey(s.prefix, img.ID, img.ContentType)
		if err := s.blobs.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), img.ContentType); err != nil {
			return &domain.PersistenceError{Op: "upload image", Err: err}
		}
		uploaded = key
		img.StorageKey = key
		img.ImageURL = s.blobs.GetURL(key)
		img.ImageData = nil
	}

	err := repository.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.images.WithTx(tx).Create(ctx, img); err != nil {
			return &domain.PersistenceError{Op: "save image metadata", Err: err}
		}
		if within != nil {
			return within(tx)
		}
		return nil
	})
	if err != nil {
		if uploaded != "" {
			if delErr := s.blobs.Delete(context.WithoutCancel(ctx), uploaded); delErr != nil {
				logger.CtxWarn(ctx, "Failed to remove orphaned image blob %s: %v", uploaded, delErr)
			}
		}
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) && !isDomainError(err) {
			err = &domain.PersistenceError{Op: "save image", Err: err}
		}
		return err
	}

	s.cache.SetDefault(img.ID, &StoredImage{Data: data, ContentType: img.ContentType})
	logger.With(logger.Fields{
		logger.FieldSize: len(data),
		"image_id":       img.ID,
	}).Debug(ctx, "Image saved")
	return nil
}

// Retrieve returns the bytes and content type of a stored image.
// Returns domain.ErrNotFound if the id is unknown.
func (s *ImageStore) Retrieve(ctx context.Context, id string) (*StoredImage, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.(*StoredImage), nil
	}

	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "load image", Err: err}
	}

	data := img.ImageData
	if len(data) == 0 && img.StorageKey != "" {
		if s.blobs == nil {
			return nil, &domain.PersistenceError{Op: "load image", Err: fmt.Errorf("image %s is in object storage but storage is disabled", id)}
		}
		rc, err := s.blobs.Download(ctx, img.StorageKey)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "download image", Err: err}
		}
		defer rc.Close()
		if data, err = io.ReadAll(rc); err != nil {
			return nil, &domain.PersistenceError{Op: "download image", Err: err}
		}
	}

	stored := &StoredImage{Data: data, ContentType: img.ContentType}
	s.cache.SetDefault(id, stored)
	return stored, nil
}

// List returns a page of the user's image metadata, newest first.
func (s *ImageStore) List(ctx context.Context, userID string, limit, offset int) ([]domain.ImageMetadata, int64, error) {
	images, total, err := s.images.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, &domain.PersistenceError{Op: "list images", Err: err}
	}
	return images, total, nil
}

// isDomainError reports whether err is one of the typed errors that callers
// map to client-facing statuses.
func isDomainError(err error) bool {
	var insufficient *domain.InsufficientCreditsError
	var validation *domain.ValidationError
	return errors.As(err, &insufficient) || errors.As(err, &validation) ||
		errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthenticated)
}
