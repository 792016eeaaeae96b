package middleware

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

var publicUploadExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

// UploadsProtection serves only slide-image extensions from the public
// /uploads route. Anything else that lands in the upload directory stays
// unreachable.
func UploadsProtection() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawPath := strings.ToLower(strings.TrimSpace(c.Param("filepath")))
		ext := filepath.Ext(rawPath)

		if _, ok := publicUploadExtensions[ext]; !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		c.Header("Cache-Control", "public, max-age=86400")
		c.Next()
	}
}
