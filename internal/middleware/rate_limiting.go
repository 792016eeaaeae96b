package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
)

// RateLimitMiddleware applies the general per-IP budget to every route except
// health, metrics and static uploads.
func RateLimitMiddleware(manager *RateLimitManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		allowed := manager.Allow(BucketGeneral, c.ClientIP(),
			cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst)
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// BucketRateLimit applies a tighter per-IP budget to a sensitive route group,
// independent of the general bucket.
func BucketRateLimit(manager *RateLimitManager, bucket string, requestsPerWindow, windowSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !manager.Allow(bucket, c.ClientIP(), requestsPerWindow, windowSeconds, 0) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}

	path := r.URL.Path
	if path == "/health" || path == "/metrics" || path == "/favicon.ico" {
		return true
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	return strings.HasPrefix(path, "/uploads/")
}
