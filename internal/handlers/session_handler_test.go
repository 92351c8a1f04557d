package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizmaster/internal/middleware"
	"quizmaster/internal/models"
	"quizmaster/internal/service"
	"quizmaster/internal/session"

	"github.com/gin-gonic/gin"
)

type stubSource struct {
	questions []models.Question
}

func (s *stubSource) FetchQuestions(_ context.Context, _, _ string, _ int) ([]models.Question, error) {
	return s.questions, nil
}

type stubAttemptStore struct{}

func (s *stubAttemptStore) Submit(_ context.Context, result *models.Result) error {
	result.ID = "stored-1"
	return nil
}

func stubQuestions(n int) []models.Question {
	questions := make([]models.Question, n)
	for i := 0; i < n; i++ {
		questions[i] = models.Question{
			ID:       fmt.Sprintf("q%d", i+1),
			Question: fmt.Sprintf("Question %d", i+1),
			Options:  []string{"A", "B"},
			Answer:   "A",
			Subject:  "DSA",
		}
	}
	return questions
}

func newSessionRouter(n int) (*gin.Engine, *service.SessionService) {
	gin.SetMode(gin.TestMode)
	svc := service.NewSessionService(
		&stubSource{questions: stubQuestions(n)},
		&stubAttemptStore{},
		session.NewMemoryStore(),
		nil,
	)
	h := NewSessionHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUsername, "alice")
		c.Set(middleware.ContextBranch, "CSE")
	})
	r.POST("/start", h.Start)
	r.GET("/status", h.Status)
	r.POST("/submit", h.Submit)
	return r, svc
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal response failed: %v", err)
	}
	return w, resp
}

func startBody() map[string]interface{} {
	return map[string]interface{}{"subject": "DSA", "mode": "Easy", "count": 1}
}

// A timed-out quiz re-opened with the same parameters must route the user
// through the submission view, not directly to results.
func TestStartAfterTimeoutNavigatesToSubmission(t *testing.T) {
	r, svc := newSessionRouter(1)

	w, _ := postJSON(t, r, "/start", startBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	engine, err := svc.Get("alice", "DSA", "Easy")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for i := 0; i <= session.SecondsPerQuestion; i++ {
		engine.Tick()
	}

	w, resp := postJSON(t, r, "/start", startBody())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for completed quiz, got %d: %s", w.Code, w.Body.String())
	}
	if resp["navigate"] != string(session.NavigateSubmission) {
		t.Errorf("Expected submission navigation, got %v", resp["navigate"])
	}
	if resp["attempt"] == nil {
		t.Error("Expected the finalized attempt in the response")
	}
}

func TestStartAfterManualSubmitNavigatesToResult(t *testing.T) {
	r, _ := newSessionRouter(1)

	w, _ := postJSON(t, r, "/start", startBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w, resp := postJSON(t, r, "/submit?subject=DSA&mode=Easy", struct{}{})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["navigate"] != string(session.NavigateResult) {
		t.Errorf("Expected result navigation on manual submit, got %v", resp["navigate"])
	}

	w, resp = postJSON(t, r, "/start", startBody())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for completed quiz, got %d: %s", w.Code, w.Body.String())
	}
	if resp["navigate"] != string(session.NavigateResult) {
		t.Errorf("Expected result navigation for manual completion, got %v", resp["navigate"])
	}
}
