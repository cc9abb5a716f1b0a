package service

import (
	"strconv"
	"strings"

	"github.com/timmy/cardsmith/internal/domain"
)

// Pricing holds the two cost models: a flat per-card charge and a per-area
// charge for image-only generation.
type Pricing struct {
	CardGenerationCost  int
	CreditsPerMegapixel int
	DefaultImageSize    string
	MaxImageDimension   int
}

// CardCost returns the flat credit cost of one card generation.
func (p Pricing) CardCost() int {
	return p.CardGenerationCost
}

// ImageCost returns the credit cost of an image of the given dimensions.
func (p Pricing) ImageCost(width, height int) int {
	return ImageGenerationCost(width, height, p.CreditsPerMegapixel)
}

// ImageGenerationCost returns ceil(width*height/1e6 * rate) using integer
// arithmetic only.
func ImageGenerationCost(width, height, ratePerMegapixel int) int {
	units := int64(width) * int64(height) * int64(ratePerMegapixel)
	return int((units + 999_999) / 1_000_000)
}

// ParseImageSize parses "WIDTHxHEIGHT". An empty size yields the default.
func (p Pricing) ParseImageSize(size string) (int, int, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		size = p.DefaultImageSize
	}

	w, h, ok := strings.Cut(strings.ToLower(size), "x")
	if !ok {
		return 0, 0, domain.NewValidationError("imageSize", "image size must look like 1024x576")
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, domain.NewValidationError("imageSize", "invalid width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, domain.NewValidationError("imageSize", "invalid height %q", h)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, domain.NewValidationError("imageSize", "image dimensions must be positive")
	}
	if p.MaxImageDimension > 0 && (width > p.MaxImageDimension || height > p.MaxImageDimension) {
		return 0, 0, domain.NewValidationError("imageSize", "image dimensions must not exceed %d", p.MaxImageDimension)
	}
	return width, height, nil
}
