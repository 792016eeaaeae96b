package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

// respondError maps service and validation errors onto HTTP statuses.
// Validation failures are 400 except a submit with no selection, which is a
// 409 because the session state survives it. State-machine misuse is 409.
func respondError(c *gin.Context, err error) {
	switch {
	case models.IsValidationError(err):
		kind := models.ValidationKind(err)
		status := http.StatusBadRequest
		if kind == models.KindNoSelection {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "kind": string(kind)})

	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrEditorLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrAlreadyAnswered),
		errors.Is(err, service.ErrNotYetAnswered),
		errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrLessonEmpty),
		errors.Is(err, service.ErrImageInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrInvalidUploadName),
		errors.Is(err, service.ErrUnsupportedUpload),
		errors.Is(err, service.ErrUploadTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		logger.Error(err, "Unhandled request error", logger.FieldsFromContext(c.Request.Context()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func parseIndexParam(c *gin.Context, name string) (int, bool) {
	idx, err := strconv.Atoi(c.Param(name))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return idx, true
}

func parseQueryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
