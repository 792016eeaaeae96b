package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

type CacheHandler struct {
	cache *cache.Cache
}

func NewCacheHandler(cacheService *cache.Cache) *CacheHandler {
	return &CacheHandler{cache: cacheService}
}

// Clear drops every cached payload. Lessons and settings repopulate on the
// next request, so the only cost is a burst of database reads.
func (h *CacheHandler) Clear(c *gin.Context) {
	if !h.cache.Enabled() {
		c.JSON(http.StatusOK, gin.H{"message": "cache is disabled"})
		return
	}

	if err := h.cache.FlushAll(); err != nil {
		respondError(c, err)
		return
	}

	username, _ := c.Get("username")
	logger.Info("Cache cleared", map[string]interface{}{
		"username": username,
	})

	c.JSON(http.StatusOK, gin.H{"message": "cache cleared successfully"})
}
