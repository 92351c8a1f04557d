package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"quizmaster/internal/event"
	"quizmaster/internal/models"
	"quizmaster/internal/session"
)

var ErrNoPendingAttempt = errors.New("no finalized attempt waiting to be saved")

// AttemptStore is where finalized attempts are persisted. Satisfied by
// ResultService.
type AttemptStore interface {
	Submit(ctx context.Context, result *models.Result) error
}

// SessionService owns the live quiz engines and reconciles the two
// submission paths (manual-immediate and timeout-save-first) into one
// server-backed record per session.
type SessionService struct {
	Manager   *session.Manager
	Questions session.QuestionSource
	Results   AttemptStore
	Store     session.Store
	Publisher *event.EventPublisher
}

func NewSessionService(
	questions session.QuestionSource,
	results AttemptStore,
	store session.Store,
	publisher *event.EventPublisher,
) *SessionService {
	return &SessionService{
		Manager:   session.NewManager(),
		Questions: questions,
		Results:   results,
		Store:     store,
		Publisher: publisher,
	}
}

// Start creates (or resumes) the engine for a user's parameters. An existing
// active engine is returned as-is, which is how a page reload re-attaches to
// its running countdown. A completed marker resolves straight to Locked and
// is surfaced as session.ErrAlreadyCompleted.
func (s *SessionService) Start(ctx context.Context, username, branch string, p session.Params) (*session.Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.Manager.Get(username, p.Subject, p.Mode); err == nil {
		if existing.Snapshot().State == session.StateActive {
			return existing, nil
		}
	}

	engine := session.NewEngine(p, username, branch, s.Questions, session.Scoped(s.Store, username))
	engine.SetAutoSubmitHandler(func(attempt *models.Result) {
		s.handleTimeout(username, p, attempt)
	})

	if err := engine.Start(ctx); err != nil {
		return engine, err
	}

	s.Manager.Put(username, engine)
	engine.StartTimer()
	s.publish("quiz.session.started", map[string]interface{}{
		"username": username,
		"subject":  p.Subject,
		"mode":     p.Mode,
	})
	return engine, nil
}

// Get returns the live engine for a user's parameters.
func (s *SessionService) Get(username, subject, mode string) (*session.Engine, error) {
	return s.Manager.Get(username, subject, mode)
}

// Submit finalizes via the manual path: the caller gets the attempt back
// immediately and the Result Store write happens in the background, after
// which the hand-off slot is upgraded with the server-assigned ID.
func (s *SessionService) Submit(ctx context.Context, username, subject, mode string) (*models.Result, session.Navigation, error) {
	engine, err := s.Manager.Get(username, subject, mode)
	if err != nil {
		return nil, "", err
	}

	attempt, err := engine.Submit(ctx, session.TriggerManual)
	if errors.Is(err, session.ErrAlreadySubmitted) {
		// Duplicate submission: not user-visible, the first submit won.
		log.Printf("session: duplicate submit ignored for %s %s/%s", username, subject, mode)
		return attempt, session.NavigateResult, nil
	}
	if err != nil {
		return nil, "", err
	}

	s.Manager.Remove(username, engine.Params())
	s.publish("quiz.session.submitted", map[string]interface{}{
		"username": username,
		"subject":  subject,
		"mode":     mode,
		"trigger":  session.TriggerManual,
	})

	go func() {
		if err := s.saveAttempt(context.Background(), username, attempt); err != nil {
			log.Printf("session: background save failed for %s: %s", username, err)
		}
	}()

	return attempt, session.NavigateResult, nil
}

// handleTimeout is the auto path: the countdown finalized the engine, so the
// attempt must reach the Result Store before the result view means anything.
// On failure the attempt stays recoverable in the hand-off slot.
func (s *SessionService) handleTimeout(username string, p session.Params, attempt *models.Result) {
	s.Manager.Remove(username, p)
	s.publish("quiz.session.submitted", map[string]interface{}{
		"username": username,
		"subject":  p.Subject,
		"mode":     p.Mode,
		"trigger":  session.TriggerTimeout,
	})
	if err := s.saveAttempt(context.Background(), username, attempt); err != nil {
		log.Printf("session: timeout save failed for %s: %s", username, err)
	}
}

// saveAttempt persists the attempt and upgrades the hand-off slot with the
// stored identity. Retried saves re-send the same payload; each success
// creates a new Result Store entry.
func (s *SessionService) saveAttempt(ctx context.Context, username string, attempt *models.Result) error {
	if err := s.Results.Submit(ctx, attempt); err != nil {
		s.publish("quiz.attempt.save_failed", map[string]interface{}{"username": username})
		return err
	}
	store := session.Scoped(s.Store, username)
	if raw, err := json.Marshal(attempt); err == nil {
		if err := store.Set(ctx, session.HandoffKey, string(raw)); err != nil {
			log.Printf("session: upgrading hand-off slot: %s", err)
		}
	}
	s.publish("quiz.attempt.saved", map[string]interface{}{
		"username":  username,
		"result_id": attempt.ID,
		"score":     attempt.Score,
	})
	return nil
}

// PendingAttempt reads the hand-off slot: the most recently finalized
// attempt, with its stored ID if the save already succeeded.
func (s *SessionService) PendingAttempt(ctx context.Context, username string) (*models.Result, error) {
	raw, err := session.Scoped(s.Store, username).Get(ctx, session.HandoffKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, ErrNoPendingAttempt
	}
	var attempt models.Result
	if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// RetrySave re-attempts the Result Store write for a finalized attempt whose
// save failed. An attempt that already has a stored ID is returned as-is.
func (s *SessionService) RetrySave(ctx context.Context, username string) (*models.Result, error) {
	attempt, err := s.PendingAttempt(ctx, username)
	if err != nil {
		return nil, err
	}
	if attempt.ID != "" {
		return attempt, nil
	}
	if err := s.saveAttempt(ctx, username, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *SessionService) publish(eventType string, payload interface{}) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(eventType, payload); err != nil {
		log.Printf("session: publishing %s: %s", eventType, err)
	}
}
