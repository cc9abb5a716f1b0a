package repository

import (
	"context"

	"github.com/timmy/cardsmith/internal/domain"
	"gorm.io/gorm"
)

// ImageRepository handles image_metadata rows.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *ImageRepository) WithTx(tx *gorm.DB) *ImageRepository {
	return &ImageRepository{db: tx}
}

// Create inserts a new image record. Records are never updated afterwards.
func (r *ImageRepository) Create(ctx context.Context, image *domain.ImageMetadata) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// GetByID retrieves an image including its inline bytes, if any.
// Returns domain.ErrNotFound if no such image exists.
func (r *ImageRepository) GetByID(ctx context.Context, id string) (*domain.ImageMetadata, error) {
	var image domain.ImageMetadata
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &image, nil
}

// ListByUser retrieves a page of a user's images, newest first, without bytes.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner of the images.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.ImageMetadata: page of records with ImageData unset.
//   - int64: total number of images the user owns.
//   - error: non-nil if the query fails.
func (r *ImageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.ImageMetadata, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.ImageMetadata{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var images []domain.ImageMetadata
	err := r.db.WithContext(ctx).
		Omit("image_data", "full_result").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error
	if err != nil {
		return nil, 0, err
	}
	return images, total, nil
}
