package domain

import (
	"fmt"
	"time"
)

// ImageMetadata is a generated image and its provenance. Bytes live either in
// ImageData or in object storage under StorageKey. Records are write-once.
type ImageMetadata struct {
	ID              string    `gorm:"type:text;primaryKey" json:"id"`
	Prompt          string    `gorm:"type:text" json:"prompt"`
	ImageData       []byte    `gorm:"column:image_data" json:"-"`
	StorageKey      string    `gorm:"type:text" json:"-"`
	ImageURL        string    `gorm:"column:image_url;type:text" json:"externalUrl,omitempty"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	ContentType     string    `gorm:"type:text" json:"contentType"`
	Seed            int64     `json:"seed"`
	HasNsfwConcepts string    `gorm:"type:text" json:"hasNsfwConcepts"`
	FullResult      string    `gorm:"type:text" json:"-"`
	UserID          string    `gorm:"type:text;index:idx_images_user_created" json:"userId"`
	CreatedAt       time.Time `gorm:"index:idx_images_user_created" json:"createdAt"`
}

// TableName returns the database table name for ImageMetadata.
func (ImageMetadata) TableName() string {
	return "image_metadata"
}

// ImagePath returns the retrieval path served by the image endpoint.
func ImagePath(id string) string {
	return fmt.Sprintf("/api/images/%s", id)
}
