package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

// ViewerHandler serves the student-side interaction endpoints. Every route
// resolves the lesson through the cache without counting a visit; only the
// initial lesson open does that.
type ViewerHandler struct {
	lessonService *service.LessonService
	resolver      *service.ResolverService
	navigator     *service.Navigator
}

func NewViewerHandler(lessonService *service.LessonService, resolver *service.ResolverService, navigator *service.Navigator) *ViewerHandler {
	return &ViewerHandler{
		lessonService: lessonService,
		resolver:      resolver,
		navigator:     navigator,
	}
}

func (h *ViewerHandler) lesson(c *gin.Context) (*models.Lesson, bool) {
	lesson, err := h.lessonService.PeekPublishedBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return lesson, true
}

func (h *ViewerHandler) view(c *gin.Context, lesson *models.Lesson) (*models.View, int, bool) {
	viewIndex, ok := parseIndexParam(c, "view")
	if !ok {
		return nil, 0, false
	}
	if viewIndex >= len(lesson.Views) {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return nil, 0, false
	}
	return &lesson.Views[viewIndex], viewIndex, true
}

// ClickZone resolves a click on a zone addressed by index.
func (h *ViewerHandler) ClickZone(c *gin.Context) {
	lesson, ok := h.lesson(c)
	if !ok {
		return
	}
	view, viewIndex, ok := h.view(c, lesson)
	if !ok {
		return
	}
	zoneIndex, ok := parseIndexParam(c, "zone")
	if !ok {
		return
	}
	if zoneIndex >= len(view.Zones) {
		c.JSON(http.StatusNotFound, gin.H{"error": "zone not found"})
		return
	}

	dispatch := h.resolver.Resolve(view.Zones[zoneIndex], viewIndex, len(lesson.Views))
	c.JSON(http.StatusOK, dispatch)
}

// ClickAt resolves a click by coordinates, hit-testing the view's zones.
func (h *ViewerHandler) ClickAt(c *gin.Context) {
	lesson, ok := h.lesson(c)
	if !ok {
		return
	}
	view, _, ok := h.view(c, lesson)
	if !ok {
		return
	}

	var req models.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispatch := h.resolver.ResolveAt(*view, req.X, req.Y, len(lesson.Views))
	c.JSON(http.StatusOK, dispatch)
}

// Advance returns the sequential directive from the addressed view.
func (h *ViewerHandler) Advance(c *gin.Context) {
	lesson, ok := h.lesson(c)
	if !ok {
		return
	}
	_, viewIndex, ok := h.view(c, lesson)
	if !ok {
		return
	}

	directive := h.navigator.AdvanceSequential(viewIndex, len(lesson.Views))
	c.JSON(http.StatusOK, models.Dispatch{Kind: models.DispatchNavigate, Navigate: &directive})
}

// Navigate jumps to an explicit view index, rejecting out-of-range targets.
func (h *ViewerHandler) Navigate(c *gin.Context) {
	lesson, ok := h.lesson(c)
	if !ok {
		return
	}

	var req models.NavigateToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	directive, err := h.navigator.NavigateTo(*req.Target, len(lesson.Views))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Dispatch{Kind: models.DispatchNavigate, Navigate: &directive})
}
