package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

type LessonHandler struct {
	lessonService *service.LessonService
}

func NewLessonHandler(lessonService *service.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// GetPublished lists published lessons for the student catalog.
func (h *LessonHandler) GetPublished(c *gin.Context) {
	page := parseQueryInt(c, "page", 1)
	limit := parseQueryInt(c, "limit", constants.DefaultLessonPageSize)
	search := strings.TrimSpace(c.Query("q"))

	lessons, total, err := h.lessonService.GetPublished(page, limit, search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lessons": lessons,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetBySlug serves the full lesson payload to the viewer and counts the visit.
func (h *LessonHandler) GetBySlug(c *gin.Context) {
	lesson, err := h.lessonService.GetPublishedBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

func (h *LessonHandler) GetAllAdmin(c *gin.Context) {
	page := parseQueryInt(c, "page", 1)
	limit := parseQueryInt(c, "limit", constants.DefaultLessonPageSize)
	search := strings.TrimSpace(c.Query("q"))

	lessons, total, err := h.lessonService.GetAllAdmin(page, limit, search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lessons": lessons,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *LessonHandler) Create(c *gin.Context) {
	var req models.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson, err := h.lessonService.Create(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"lesson": lesson})
}

func (h *LessonHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lesson, err := h.lessonService.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson, err := h.lessonService.Update(id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lessonService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "lesson deleted successfully"})
}

func (h *LessonHandler) Publish(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// The body is optional. A bare POST publishes immediately.
	var req models.PublishLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson, err := h.lessonService.Publish(id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Unpublish(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lesson, err := h.lessonService.Unpublish(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

func (h *LessonHandler) AddView(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.CreateViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.lessonService.AddView(id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"view": view})
}

func (h *LessonHandler) UpdateView(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	viewIndex, ok := parseIndexParam(c, "view")
	if !ok {
		return
	}

	var req models.UpdateViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.lessonService.UpdateView(id, viewIndex, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"view": view})
}

func (h *LessonHandler) DeleteView(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	viewIndex, ok := parseIndexParam(c, "view")
	if !ok {
		return
	}

	if err := h.lessonService.DeleteView(id, viewIndex); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "view deleted successfully"})
}
