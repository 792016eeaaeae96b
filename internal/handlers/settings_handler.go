package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
}

func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetPublic serves the viewer-facing settings payload: site identity plus
// the crossfade duration and theme the viewer applies client-side.
func (h *SettingsHandler) GetPublic(c *gin.Context) {
	settings, err := h.settingsService.GetSiteSettings()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// GetAdmin returns the raw key/value rows for the admin settings form.
func (h *SettingsHandler) GetAdmin(c *gin.Context) {
	settings, err := h.settingsService.GetRaw()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settingsService.Update(req.Settings); err != nil {
		respondError(c, err)
		return
	}

	settings, err := h.settingsService.GetRaw()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
