package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

// QuizHandler exposes the quiz session lifecycle. Sessions are opened by the
// click resolver; these routes only drive an existing session forward.
type QuizHandler struct {
	quizService *service.QuizService
}

func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (h *QuizHandler) Get(c *gin.Context) {
	state, err := h.quizService.Get(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *QuizHandler) Select(c *gin.Context) {
	var req models.SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.quizService.Select(c.Param("token"), *req.Option)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *QuizHandler) Submit(c *gin.Context) {
	state, err := h.quizService.Submit(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *QuizHandler) Dismiss(c *gin.Context) {
	state, err := h.quizService.Dismiss(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}
