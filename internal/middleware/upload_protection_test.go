package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestUploadsProtection(t *testing.T) {
	tests := []struct {
		filepath string
		allowed  bool
	}{
		{"/onion-cells.png", true},
		{"/cheek-cells.JPG", true},
		{"/diagram.svg", true},
		{"/slides/pond-water.webp", true},
		{"/notes.txt", false},
		{"/backup.sql", false},
		{"/no-extension", false},
		{"", false},
	}

	gin.SetMode(gin.TestMode)
	handler := UploadsProtection()

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/uploads"+tt.filepath, nil)
		c.Params = gin.Params{{Key: "filepath", Value: tt.filepath}}

		handler(c)

		if tt.allowed && c.IsAborted() {
			t.Errorf("%q: expected the file served, got status %d", tt.filepath, w.Code)
		}
		if !tt.allowed && w.Code != http.StatusNotFound {
			t.Errorf("%q: expected status 404, got %d", tt.filepath, w.Code)
		}
		if tt.allowed && w.Header().Get("Cache-Control") == "" {
			t.Errorf("%q: expected a cache header on served files", tt.filepath)
		}
	}
}
