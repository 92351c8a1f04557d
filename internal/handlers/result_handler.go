package handlers

import (
	"context"
	"fmt"
	"net/http"

	"quizmaster/internal/models"
	"quizmaster/internal/service"

	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	Service *service.ResultService
}

func NewResultHandler(s *service.ResultService) *ResultHandler {
	return &ResultHandler{Service: s}
}

// Submit stores a finalized attempt posted by a client. Used by clients that
// render results locally first and save in the background.
func (h *ResultHandler) Submit(c *gin.Context) {
	var result models.Result
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "details": err.Error()})
		return
	}
	if result.Answers == nil {
		result.Answers = []models.AnswerRecord{}
	}

	if err := h.Service.Submit(context.Background(), &result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error while saving results", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *ResultHandler) GetDetail(c *gin.Context) {
	id := c.Param("id")
	result, err := h.Service.GetByID(context.Background(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ResultHandler) GetByUser(c *gin.Context) {
	username := c.Param("username")
	results, err := h.Service.GetByUser(context.Background(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *ResultHandler) DeleteByUser(c *gin.Context) {
	username := c.Param("username")
	count, err := h.Service.DeleteByUser(context.Background(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No results found to delete for this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully deleted %d result(s) for user %s", count, username),
		"deleted": count,
	})
}

// Leaderboard returns each user's best score per branch/subject, sorted by
// score descending then time ascending. `sort=time` inverts the ordering.
func (h *ResultHandler) Leaderboard(c *gin.Context) {
	byTime := c.Query("sort") == "time"
	entries, err := h.Service.Leaderboard(context.Background(), c.Query("branch"), c.Query("subject"), byTime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, entries)
}
