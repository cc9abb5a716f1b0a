package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/cardsmith/internal/api/middleware"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ImageHandler serves image generation, retrieval and listing.
type ImageHandler struct {
	generator *service.ImageGenerationService
	store     *service.ImageStore
}

// NewImageHandler creates a new image handler.
func NewImageHandler(generator *service.ImageGenerationService, store *service.ImageStore) *ImageHandler {
	return &ImageHandler{generator: generator, store: store}
}

// GenerateImageRequest is the body of POST /api/generate-image.
type GenerateImageRequest struct {
	Prompt    string `json:"prompt"`
	ImageSize string `json:"imageSize"`
}

// GenerateImage handles POST /api/generate-image.
func (h *ImageHandler) GenerateImage(c *gin.Context) {
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required and must be a string."})
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), middleware.UserID(c), req.Prompt, req.ImageSize)
	if err != nil {
		h.writeFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imageUrl":   result.ImageURL,
		"fullResult": result.FullResult,
		"imageMetadata": gin.H{
			"id":          result.Image.ID,
			"externalUrl": result.Image.ImageURL,
		},
		"creditsUsed":      result.CreditsUsed,
		"remainingCredits": result.RemainingCredits,
	})
}

func (h *ImageHandler) writeFailure(c *gin.Context, err error) {
	var (
		validation   *domain.ValidationError
		insufficient *domain.InsufficientCreditsError
		artwork      *domain.ArtworkGenerationError
	)
	switch {
	case errors.As(err, &validation):
		respondError(c, err)
	case errors.As(err, &insufficient):
		c.JSON(http.StatusForbidden, gin.H{
			"error":            "Insufficient credits",
			"required":         insufficient.Required,
			"available":        insufficient.Available,
			"remainingCredits": insufficient.Available,
		})
	case errors.As(err, &artwork):
		status, msg := classifyUpstream(err)
		logger.CtxError(c.Request.Context(), "Image generation error: %v", err)
		c.JSON(status, gin.H{
			"error":     "Failed to generate image",
			"message":   msg,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": middleware.GetRequestID(c),
		})
	default:
		respondError(c, err)
	}
}

// GetImage handles GET /api/images/:id and writes the raw bytes.
func (h *ImageHandler) GetImage(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image id is required."})
		return
	}

	img, err := h.store.Retrieve(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		respondError(c, err)
		return
	}

	// Images are write-once, so clients may cache them indefinitely.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// ListImages handles GET /api/images for the authenticated user.
func (h *ImageHandler) ListImages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	images, total, err := h.store.List(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(images))
	for _, img := range images {
		items = append(items, gin.H{
			"id":          img.ID,
			"prompt":      img.Prompt,
			"imageUrl":    domain.ImagePath(img.ID),
			"externalUrl": img.ImageURL,
			"width":       img.Width,
			"height":      img.Height,
			"contentType": img.ContentType,
			"createdAt":   img.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"images": items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
