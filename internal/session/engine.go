package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"quizmaster/internal/models"
)

// QuestionSource supplies the questions for a session. Satisfied by the
// question service; faked in tests.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, subject, difficulty string, count int) ([]models.Question, error)
}

// Engine owns the lifecycle of one quiz attempt: question load, countdown,
// answer and visited bookkeeping, durable persistence across reloads, and
// exactly-once submission. All events (user calls and timer ticks) are
// serialized by one mutex; the lock check on submit is what makes a racing
// timeout and manual click resolve to a single finalized attempt.
type Engine struct {
	mu sync.Mutex

	state    State
	params   Params
	username string
	branch   string

	questions []models.Question
	current   int
	answers   map[string]models.AnswerRecord
	visited   map[string]struct{}

	remaining int
	allotted  int

	store  Store
	source QuestionSource

	attempt     *models.Result
	completedBy Trigger

	// onAutoSubmit runs outside the engine lock after a timeout finalizes
	// the session, so the owner can persist the attempt.
	onAutoSubmit func(*models.Result)

	done     chan struct{}
	stopOnce sync.Once
}

func NewEngine(params Params, username, branch string, qs QuestionSource, store Store) *Engine {
	return &Engine{
		state:    StateLoading,
		params:   params,
		username: username,
		branch:   branch,
		answers:  make(map[string]models.AnswerRecord),
		visited:  make(map[string]struct{}),
		store:    store,
		source:   qs,
		done:     make(chan struct{}),
	}
}

func (e *Engine) Params() Params { return e.params }

// SetAutoSubmitHandler registers the callback fired when the countdown
// reaches zero. Must be set before StartTimer.
func (e *Engine) SetAutoSubmitHandler(fn func(*models.Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAutoSubmit = fn
}

// Start validates parameters, checks the completed marker, fetches questions
// and restores any persisted progress. Validation failures make no network
// call. A completed marker resolves the session to Locked without refetching.
// A fetch error or empty result is terminal (Failed).
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.params.Validate(); err != nil {
		return err
	}

	if completed, _ := e.store.Get(ctx, e.params.completedKey()); completed == "true" {
		e.state = StateLocked
		if by, _ := e.store.Get(ctx, e.params.completedByKey()); by != "" {
			e.completedBy = Trigger(by)
		}
		if raw, _ := e.store.Get(ctx, HandoffKey); raw != "" {
			var attempt models.Result
			if err := json.Unmarshal([]byte(raw), &attempt); err == nil {
				e.attempt = &attempt
			}
		}
		return ErrAlreadyCompleted
	}

	questions, err := e.source.FetchQuestions(ctx, e.params.Subject, e.params.Mode, e.params.Count)
	if err != nil {
		e.state = StateFailed
		return err
	}
	if len(questions) == 0 {
		e.state = StateFailed
		return ErrEmptyQuestionSet
	}

	e.questions = questions
	e.allotted = SecondsPerQuestion * len(questions)
	e.remaining = e.allotted
	e.current = 0

	e.restoreProgress(ctx)
	e.markVisitedLocked(ctx, questions[0].ID)
	e.state = StateActive
	return nil
}

// restoreProgress loads persisted answers and visited IDs, discarding entries
// for questions not in this session's set. A reload may sample a different
// set for the same parameters; stale records would inflate the answered count
// past the question count.
func (e *Engine) restoreProgress(ctx context.Context) {
	loaded := make(map[string]struct{}, len(e.questions))
	for _, q := range e.questions {
		loaded[q.ID] = struct{}{}
	}

	if raw, _ := e.store.Get(ctx, e.params.answersKey()); raw != "" {
		var answers map[string]models.AnswerRecord
		if err := json.Unmarshal([]byte(raw), &answers); err == nil {
			pruned := false
			for id := range answers {
				if _, ok := loaded[id]; !ok {
					delete(answers, id)
					pruned = true
				}
			}
			e.answers = answers
			if pruned {
				e.persistAnswersLocked(ctx)
			}
		}
	}
	if raw, _ := e.store.Get(ctx, e.params.visitedKey()); raw != "" {
		var visited []string
		if err := json.Unmarshal([]byte(raw), &visited); err == nil {
			for _, id := range visited {
				if _, ok := loaded[id]; ok {
					e.visited[id] = struct{}{}
				}
			}
		}
	}
}

// StartTimer begins the one-second countdown in its own goroutine. The
// goroutine exits when the session is finalized or closed; a tick after
// either is impossible.
func (e *Engine) StartTimer() {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-e.done:
				return
			case <-ticker.C:
				e.Tick()
			}
		}
	}()
}

// Tick decrements the remaining time by one second, clamped at zero, and
// fires the auto submission exactly once when it reaches zero. A no-op in
// any state other than Active.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.state != StateActive {
		e.mu.Unlock()
		return
	}
	e.remaining--
	if e.remaining > 0 {
		e.mu.Unlock()
		return
	}
	e.remaining = 0
	attempt := e.finalizeLocked(context.Background(), TriggerTimeout)
	fn := e.onAutoSubmit
	e.mu.Unlock()

	if fn != nil {
		fn(attempt)
	}
}

// SelectOption records (or overwrites) the answer for the current question
// and persists the answer map so a reload can restore it.
func (e *Engine) SelectOption(ctx context.Context, option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateActive {
		return ErrNotActive
	}

	q := e.questions[e.current]
	e.answers[q.ID] = models.AnswerRecord{
		Question:       q.Question,
		SelectedOption: option,
		CorrectAnswer:  q.Answer,
		IsCorrect:      option == q.Answer,
	}
	e.markVisitedLocked(ctx, q.ID)
	e.persistAnswersLocked(ctx)
	return nil
}

// GoNext advances to the next question. On the last question it does not
// submit; it asks the caller to confirm first.
func (e *Engine) GoNext(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateActive {
		return e.current, ErrNotActive
	}
	if e.current >= len(e.questions)-1 {
		return e.current, ErrConfirmationRequired
	}
	e.current++
	e.markVisitedLocked(ctx, e.questions[e.current].ID)
	return e.current, nil
}

// JumpTo moves directly to any question and returns its previously selected
// answer, if one exists.
func (e *Engine) JumpTo(ctx context.Context, index int) (*models.AnswerRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateActive {
		return nil, ErrNotActive
	}
	if index < 0 || index >= len(e.questions) {
		return nil, ErrIndexOutOfRange
	}
	e.current = index
	q := e.questions[index]
	e.markVisitedLocked(ctx, q.ID)
	if rec, ok := e.answers[q.ID]; ok {
		return &rec, nil
	}
	return nil, nil
}

// Submit finalizes the session. Re-entry while Locked is rejected so at most
// one finalized attempt exists per session.
func (e *Engine) Submit(ctx context.Context, trigger Trigger) (*models.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateLocked {
		return e.attempt, ErrAlreadySubmitted
	}
	if e.state != StateActive {
		return nil, ErrNotActive
	}
	return e.finalizeLocked(ctx, trigger), nil
}

// finalizeLocked is the single Active→Locked transition. Caller holds the
// mutex. Ordering: lock state first, then the completed marker, then the
// hand-off slot, so a reload mid-persist can always recover the attempt.
func (e *Engine) finalizeLocked(ctx context.Context, trigger Trigger) *models.Result {
	e.stopOnce.Do(func() { close(e.done) })
	e.state = StateLocked
	e.completedBy = trigger

	answers := make([]models.AnswerRecord, 0, len(e.answers))
	score := 0
	for _, q := range e.questions {
		rec, ok := e.answers[q.ID]
		if !ok {
			continue
		}
		answers = append(answers, rec)
		if rec.IsCorrect {
			score++
		}
	}

	e.attempt = &models.Result{
		Username:  e.username,
		Branch:    e.branch,
		Subject:   e.params.Subject,
		Answers:   answers,
		Score:     score,
		Total:     len(e.questions),
		TimeTaken: e.allotted - e.remaining,
	}

	if err := e.store.Set(ctx, e.params.completedKey(), "true"); err != nil {
		log.Printf("session: persisting completed marker: %s", err)
	}
	if err := e.store.Set(ctx, e.params.completedByKey(), string(trigger)); err != nil {
		log.Printf("session: persisting completed-by tag: %s", err)
	}
	if raw, err := json.Marshal(e.attempt); err == nil {
		if err := e.store.Set(ctx, HandoffKey, string(raw)); err != nil {
			log.Printf("session: persisting attempt hand-off: %s", err)
		}
	}
	return e.attempt
}

// Attempt returns the finalized attempt, or nil before lock.
func (e *Engine) Attempt() *models.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempt
}

// Close stops the countdown without finalizing, for session teardown.
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.done) })
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	answers := make(map[string]models.AnswerRecord, len(e.answers))
	for id, rec := range e.answers {
		answers[id] = rec
	}

	snap := Snapshot{
		State:          e.state,
		Subject:        e.params.Subject,
		Mode:           e.params.Mode,
		CurrentIndex:   e.current,
		TotalQuestions: len(e.questions),
		AnsweredCount:  len(e.answers),
		RemainingTime:  e.remaining,
		AllottedTime:   e.allotted,
		CompletedBy:    e.completedBy,
		Answers:        answers,
	}
	for id := range e.visited {
		snap.Visited = append(snap.Visited, id)
	}
	if e.state == StateActive && e.current < len(e.questions) {
		q := e.questions[e.current]
		snap.CurrentQuestion = &q
		if rec, ok := e.answers[q.ID]; ok {
			snap.Selected = rec.SelectedOption
		}
	}
	return snap
}

// markVisitedLocked adds a question to the visited set and persists the set.
// Caller holds the mutex.
func (e *Engine) markVisitedLocked(ctx context.Context, questionID string) {
	e.visited[questionID] = struct{}{}
	ids := make([]string, 0, len(e.visited))
	for id := range e.visited {
		ids = append(ids, id)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, e.params.visitedKey(), string(raw)); err != nil {
		log.Printf("session: persisting visited set: %s", err)
	}
}

func (e *Engine) persistAnswersLocked(ctx context.Context) {
	raw, err := json.Marshal(e.answers)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, e.params.answersKey(), string(raw)); err != nil {
		log.Printf("session: persisting answers: %s", err)
	}
}
