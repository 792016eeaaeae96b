package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login exchanges the admin credentials for a bearer token. The token is
// returned in the body only, never as a cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	resp, err := h.authService.Login(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
