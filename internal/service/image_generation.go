package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"gorm.io/gorm"
)

// ImageGenerationResult is a standalone generated image and what it cost.
type ImageGenerationResult struct {
	Image            *domain.ImageMetadata
	ImageURL         string
	FullResult       json.RawMessage
	CreditsUsed      int
	RemainingCredits int
}

// ImageGenerationService generates standalone images priced by area.
type ImageGenerationService struct {
	artwork ArtworkGenerator
	images  *ImageStore
	ledger  *CreditLedger
	pricing Pricing
}

// NewImageGenerationService creates a new ImageGenerationService.
func NewImageGenerationService(artwork ArtworkGenerator, images *ImageStore, ledger *CreditLedger, pricing Pricing) *ImageGenerationService {
	return &ImageGenerationService{
		artwork: artwork,
		images:  images,
		ledger:  ledger,
		pricing: pricing,
	}
}

// Generate creates one image of imageSize ("WIDTHxHEIGHT", empty for the
// default) and charges for its area.
func (s *ImageGenerationService) Generate(ctx context.Context, userID, prompt, imageSize string) (*ImageGenerationResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.NewValidationError("prompt", "Prompt is required and must be a string.")
	}
	width, height, err := s.pricing.ParseImageSize(imageSize)
	if err != nil {
		return nil, err
	}

	cost := s.pricing.ImageCost(width, height)
	if _, err := s.ledger.Reserve(ctx, userID, cost); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	art, err := s.artwork.GenerateArtwork(ctx, prompt, width, height)
	if err != nil {
		logger.CtxError(ctx, "Image generation failed: %v", err)
		return nil, err
	}

	img := NewImage(prompt, art, userID)
	var remaining int
	err = s.images.SaveWith(ctx, img, func(tx *gorm.DB) error {
		var err error
		remaining, err = s.ledger.DebitTx(ctx, tx, userID, cost, domain.ReasonImageGeneration, img.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldSize: len(art.Data),
		"image_id":       img.ID,
	}).WithDuration(time.Since(start).Milliseconds()).WithCredits(cost).Info(ctx, "Image generated (%dx%d)", width, height)

	fullResult := json.RawMessage("null")
	if art.Response != "" && json.Valid([]byte(art.Response)) {
		fullResult = json.RawMessage(art.Response)
	}

	return &ImageGenerationResult{
		Image:            img,
		ImageURL:         domain.ImagePath(img.ID),
		FullResult:       fullResult,
		CreditsUsed:      cost,
		RemainingCredits: remaining,
	}, nil
}
