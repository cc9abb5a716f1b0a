package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
)

// statusFor maps domain errors to HTTP statuses. Anything unrecognized is a 500.
func statusFor(err error) int {
	var (
		validation   *domain.ValidationError
		insufficient *domain.InsufficientCreditsError
		invalidCard  *domain.InvalidCardError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &invalidCard), errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &insufficient):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the message safe to show to clients. Internal
// failures are logged but not echoed.
func publicMessage(err error, status int) string {
	if status >= 500 {
		return "Internal server error"
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	return err.Error()
}

// respondError writes {"error": message} with the mapped status.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger.CtxError(c.Request.Context(), "Request failed: %v", err)
	}
	body := gin.H{"error": publicMessage(err, status)}
	var validation *domain.ValidationError
	if errors.As(err, &validation) && validation.Field != "" {
		body["field"] = validation.Field
	}
	c.JSON(status, body)
}

// classifyUpstream distinguishes network trouble, timeouts and rate limits
// in failures from the image generator.
func classifyUpstream(err error) (int, string) {
	var upstream *domain.UpstreamError
	var netErr net.Error
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return http.StatusGatewayTimeout, "The request timed out. Please try again later."
	case errors.As(err, &upstream) && upstream.StatusCode == http.StatusTooManyRequests, strings.Contains(msg, "rate limit"):
		return http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."
	case errors.As(err, &netErr), strings.Contains(msg, "network"):
		return http.StatusServiceUnavailable, "A network error occurred. Please check your connection and try again."
	default:
		return http.StatusInternalServerError, "An error occurred while generating the image."
	}
}
