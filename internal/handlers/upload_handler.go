package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

type UploadHandler struct {
	uploadService *service.UploadService
}

func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	upload, err := h.uploadService.UploadImage(file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"upload": upload, "url": upload.URL})
}

func (h *UploadHandler) List(c *gin.Context) {
	uploads, err := h.uploadService.ListImages()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

// Rename gives an uploaded image a new name and rewrites every view that
// references the old URL.
func (h *UploadHandler) Rename(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	upload, err := h.uploadService.Rename(c.Param("filename"), strings.TrimSpace(req.Name))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload": upload})
}

// Delete removes an uploaded image unless a view still references it.
func (h *UploadHandler) Delete(c *gin.Context) {
	if err := h.uploadService.Delete(c.Param("filename")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "image deleted successfully"})
}
