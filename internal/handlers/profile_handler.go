package handlers

import (
	"context"
	"net/http"

	"quizmaster/internal/middleware"
	"quizmaster/internal/repository"
	"quizmaster/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	Users   *repository.UserRepository
	Results *service.ResultService
}

func NewProfileHandler(users *repository.UserRepository, results *service.ResultService) *ProfileHandler {
	return &ProfileHandler{Users: users, Results: results}
}

// Get returns the authenticated user and their attempts, newest first.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	user, err := h.Users.FindByID(context.Background(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	results, err := h.Results.GetByUser(context.Background(), user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "results": results})
}
