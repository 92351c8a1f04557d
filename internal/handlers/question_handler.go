package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"quizmaster/internal/models"
	"quizmaster/internal/repository"
	"quizmaster/internal/service"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	Service *service.QuestionService
}

func NewQuestionHandler(s *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{Service: s}
}

// GetBySubject returns random questions for a subject with optional
// difficulty filtering (and the fallback walk when it has no matches).
func (h *QuestionHandler) GetBySubject(c *gin.Context) {
	subject := c.Param("subject")
	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil || count < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question count provided"})
		return
	}
	difficulty := c.Query("difficulty")
	if difficulty != "" && !models.ValidDifficulty(difficulty) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid difficulty: " + difficulty})
		return
	}

	questions, err := h.Service.FetchQuestions(context.Background(), subject, difficulty, count)
	if err != nil {
		var notFound *repository.ErrNoQuestions
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, questions)
}

// GetForInterview fetches questions by branch and subject.
func (h *QuestionHandler) GetForInterview(c *gin.Context) {
	branch := c.Query("branch")
	subject := c.Query("subject")
	countStr := c.Query("count")
	if branch == "" || subject == "" || countStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters: branch, subject, or count"})
		return
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question count provided"})
		return
	}

	questions, err := h.Service.FetchByBranchSubject(context.Background(), branch, subject, count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	if len(questions) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No questions found for the specified branch and subject"})
		return
	}
	c.JSON(http.StatusOK, questions)
}

// BulkInsert loads a batch of questions.
func (h *QuestionHandler) BulkInsert(c *gin.Context) {
	var req struct {
		Questions []models.Question `json:"questions" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Questions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or empty data"})
		return
	}

	count, err := h.Service.BulkInsert(context.Background(), req.Questions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Questions inserted successfully",
		"count":   count,
	})
}
