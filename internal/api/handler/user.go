package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/cardsmith/internal/api/middleware"
	"github.com/timmy/cardsmith/internal/service"
)

// UserHandler serves the current account.
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// Me handles GET /api/users/me. Credits are read fresh on every call.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.auth.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Profile()})
}
