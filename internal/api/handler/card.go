package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/cardsmith/internal/api/middleware"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/service"
)

// CardHandler serves the card generation endpoint.
type CardHandler struct {
	cards *service.CardGenerationService
}

// NewCardHandler creates a new card handler.
func NewCardHandler(cards *service.CardGenerationService) *CardHandler {
	return &CardHandler{cards: cards}
}

// GenerateCardResponse is the body of every generate-card response.
type GenerateCardResponse struct {
	Success          bool         `json:"success"`
	CardData         *domain.Card `json:"cardData"`
	CreditsUsed      int          `json:"creditsUsed"`
	RemainingCredits int          `json:"remainingCredits"`
	GenerationID     string       `json:"generationId,omitempty"`
	Warnings         []string     `json:"warnings,omitempty"`
	Error            string       `json:"error,omitempty"`
	Field            string       `json:"field,omitempty"`
	Required         *int         `json:"required,omitempty"`
	Available        *int         `json:"available,omitempty"`
}

// GenerateCard handles POST /api/generate-card.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *CardHandler) GenerateCard(c *gin.Context) {
	var req domain.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenerateCardResponse{
			CardData: &domain.Card{},
			Error:    "Invalid request body: " + err.Error(),
		})
		return
	}

	userID := middleware.UserID(c)
	result, err := h.cards.Generate(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateCardResponse{
		Success:          true,
		CardData:         result.Card,
		CreditsUsed:      result.CreditsUsed,
		RemainingCredits: result.RemainingCredits,
		GenerationID:     result.GenerationID,
		Warnings:         result.Warnings,
	})
}

func (h *CardHandler) writeFailure(c *gin.Context, err error) {
	resp := GenerateCardResponse{CardData: &domain.Card{}}

	var (
		validation   *domain.ValidationError
		insufficient *domain.InsufficientCreditsError
		invalidCard  *domain.InvalidCardError
	)
	switch {
	case errors.As(err, &validation):
		resp.Error = validation.Message
		resp.Field = validation.Field
	case errors.As(err, &insufficient):
		resp.Error = "Insufficient credits"
		resp.Required = &insufficient.Required
		resp.Available = &insufficient.Available
		resp.RemainingCredits = insufficient.Available
	case errors.As(err, &invalidCard):
		resp.Error = "Generated card failed validation"
		resp.CardData = invalidCard.Card
		resp.RemainingCredits = invalidCard.Balance
		resp.Warnings = invalidCard.Validation.Errors
	default:
		status := statusFor(err)
		logger.CtxError(c.Request.Context(), "Card generation error: %v", err)
		resp.Error = publicMessage(err, status)
		c.JSON(status, resp)
		return
	}

	c.JSON(statusFor(err), resp)
}
