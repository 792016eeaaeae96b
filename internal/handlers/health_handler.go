package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
)

type HealthHandler struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewHealthHandler(db *gorm.DB, cacheService *cache.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheService}
}

// Health reports liveness. A dead database makes the whole check fail; a
// dead cache only degrades it, the app serves from Postgres without it.
func (h *HealthHandler) Health(c *gin.Context) {
	dbStatus := "up"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "down"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "down"
	}

	cacheStatus := "up"
	switch {
	case !h.cache.Enabled():
		cacheStatus = "disabled"
	case h.cache.Ping() != nil:
		cacheStatus = "down"
	}

	status := http.StatusOK
	overall := "healthy"
	if dbStatus == "down" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbStatus,
		"cache":    cacheStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
