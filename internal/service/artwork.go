package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/timmy/cardsmith/internal/config"
	_ "golang.org/x/image/webp"
)

// ArtworkGenerator produces one image for a prompt at the requested size.
type ArtworkGenerator interface {
	GenerateArtwork(ctx context.Context, prompt string, width, height int) (*ArtworkResult, error)
}

// ArtworkResult is a decoded image plus provider metadata.
type ArtworkResult struct {
	Data            []byte
	ContentType     string
	Width           int
	Height          int
	Seed            int64
	HasNsfwConcepts bool
	// Response is the provider's raw response, serialized as JSON.
	Response string
}

// NewArtworkGenerator builds the configured artwork backend.
func NewArtworkGenerator(cfg *config.ArtworkConfig) (ArtworkGenerator, error) {
	switch cfg.Provider {
	case "process", "":
		return NewProcessArtworkGenerator(cfg), nil
	case "imagen":
		return NewImagenArtworkGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported artwork provider %q", cfg.Provider)
	}
}

// DetectImage sniffs the content type and pixel dimensions of encoded image
// bytes. Supported formats are jpeg, png, gif and webp.
func DetectImage(data []byte) (contentType string, width, height int, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("unrecognized image data: %w", err)
	}
	return "image/" + format, cfg.Width, cfg.Height, nil
}
