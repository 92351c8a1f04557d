package handlers

import (
	"context"
	"errors"
	"net/http"

	"quizmaster/internal/middleware"
	"quizmaster/internal/repository"
	"quizmaster/internal/service"
	"quizmaster/internal/session"

	"github.com/gin-gonic/gin"
)

// SessionHandler drives the quiz session engine over REST. Every route
// identifies the session by the authenticated user plus the (subject, mode)
// query pair; there is no other session identity.
type SessionHandler struct {
	Service *service.SessionService
}

func NewSessionHandler(s *service.SessionService) *SessionHandler {
	return &SessionHandler{Service: s}
}

func (h *SessionHandler) engine(c *gin.Context) (*session.Engine, bool) {
	username := c.GetString(middleware.ContextUsername)
	engine, err := h.Service.Get(username, c.Query("subject"), c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active session", "code": "NO_SESSION"})
		return nil, false
	}
	return engine, true
}

// Start creates or resumes a session for the given parameters.
func (h *SessionHandler) Start(c *gin.Context) {
	var params session.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	username := c.GetString(middleware.ContextUsername)
	branch := c.GetString(middleware.ContextBranch)

	engine, err := h.Service.Start(context.Background(), username, branch, params)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"session": engine.Snapshot()})
	case errors.Is(err, session.ErrInvalidParams):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_PARAMETERS"})
	case errors.Is(err, session.ErrAlreadyCompleted):
		// The quiz for these parameters is done; an auto-finalized attempt
		// still has to pass through the submission view.
		snap := engine.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"session":  snap,
			"navigate": snap.Navigation(),
			"attempt":  engine.Attempt(),
		})
	case isNoQuestions(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NO_QUESTIONS"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch questions", "details": err.Error(), "retry": true})
	}
}

func isNoQuestions(err error) bool {
	var notFound *repository.ErrNoQuestions
	return errors.As(err, &notFound) || errors.Is(err, session.ErrEmptyQuestionSet)
}

func (h *SessionHandler) Status(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	snap := engine.Snapshot()
	resp := gin.H{"session": snap}
	if snap.State == session.StateLocked {
		resp["navigate"] = snap.Navigation()
	}
	c.JSON(http.StatusOK, resp)
}

// Answer records the selected option for the current question.
func (h *SessionHandler) Answer(c *gin.Context) {
	var req struct {
		Option string `json:"option" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid answer format", "details": err.Error()})
		return
	}

	engine, ok := h.engine(c)
	if !ok {
		return
	}
	if err := engine.SelectOption(context.Background(), req.Option); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": engine.Snapshot()})
}

// Next advances to the next question. On the last question no submission
// happens; the response asks the client to confirm explicitly.
func (h *SessionHandler) Next(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	index, err := engine.GoNext(context.Background())
	if errors.Is(err, session.ErrConfirmationRequired) {
		c.JSON(http.StatusOK, gin.H{"confirm_submit": true, "index": index})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "session": engine.Snapshot()})
}

// Jump moves to any question and returns its previously chosen option.
func (h *SessionHandler) Jump(c *gin.Context) {
	var req struct {
		Index *int `json:"index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	engine, ok := h.engine(c)
	if !ok {
		return
	}
	record, err := engine.JumpTo(context.Background(), *req.Index)
	if errors.Is(err, session.ErrIndexOutOfRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"session": engine.Snapshot()}
	if record != nil {
		resp["selected"] = record.SelectedOption
	}
	c.JSON(http.StatusOK, resp)
}

// Submit finalizes the session via the manual path.
func (h *SessionHandler) Submit(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	attempt, navigate, err := h.Service.Submit(context.Background(), username, c.Query("subject"), c.Query("mode"))
	if errors.Is(err, session.ErrNoSession) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active session", "code": "NO_SESSION"})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt, "navigate": navigate})
}

// Attempt returns the hand-off slot: the latest finalized attempt, with its
// stored ID once the save has succeeded.
func (h *SessionHandler) Attempt(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	attempt, err := h.Service.PendingAttempt(context.Background(), username)
	if errors.Is(err, service.ErrNoPendingAttempt) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

// RetrySave re-attempts a failed Result Store write for the latest attempt.
func (h *SessionHandler) RetrySave(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	attempt, err := h.Service.RetrySave(context.Background(), username)
	if errors.Is(err, service.ErrNoPendingAttempt) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to save attempt", "details": err.Error(), "retry": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}
