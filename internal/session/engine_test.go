package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"quizmaster/internal/models"
	"quizmaster/internal/repository"
)

type fakeSource struct {
	questions []models.Question
	err       error
	calls     int
}

func (f *fakeSource) FetchQuestions(_ context.Context, _, _ string, _ int) ([]models.Question, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

func makeQuestions(n int) []models.Question {
	questions := make([]models.Question, n)
	for i := 0; i < n; i++ {
		questions[i] = models.Question{
			ID:         fmt.Sprintf("q%d", i+1),
			Question:   fmt.Sprintf("Question %d", i+1),
			Options:    []string{"A", "B", "C", "D"},
			Answer:     "A",
			Subject:    "DSA",
			Branch:     "CSE",
			Difficulty: models.DifficultyEasy,
		}
	}
	return questions
}

func newTestEngine(t *testing.T, n int) (*Engine, *fakeSource, *MemoryStore) {
	t.Helper()
	source := &fakeSource{questions: makeQuestions(n)}
	store := NewMemoryStore()
	params := Params{Subject: "DSA", Mode: "Easy", Count: n}
	engine := NewEngine(params, "alice", "CSE", source, store)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return engine, source, store
}

func TestStartInvalidParams(t *testing.T) {
	testCases := []struct {
		name   string
		params Params
	}{
		{"missing subject", Params{Mode: "Easy", Count: 5}},
		{"missing mode", Params{Subject: "DSA", Count: 5}},
		{"zero count", Params{Subject: "DSA", Mode: "Easy", Count: 0}},
		{"negative count", Params{Subject: "DSA", Mode: "Easy", Count: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{questions: makeQuestions(5)}
			engine := NewEngine(tc.params, "alice", "CSE", source, NewMemoryStore())
			if err := engine.Start(context.Background()); !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("Expected ErrInvalidParams, got %v", err)
			}
			if source.calls != 0 {
				t.Errorf("Expected no fetch on invalid params, got %d calls", source.calls)
			}
			if got := engine.Snapshot().State; got != StateLoading {
				t.Errorf("Expected state loading, got %s", got)
			}
		})
	}
}

func TestStartNoQuestions(t *testing.T) {
	// Scenario: subject with no questions at any difficulty.
	source := &fakeSource{err: &repository.ErrNoQuestions{Subject: "Greek"}}
	params := Params{Subject: "Greek", Mode: "Easy", Count: 5}
	engine := NewEngine(params, "alice", "CSE", source, NewMemoryStore())

	err := engine.Start(context.Background())
	if err == nil {
		t.Fatal("Expected error for empty subject")
	}
	var notFound *repository.ErrNoQuestions
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected ErrNoQuestions, got %v", err)
	}
	if notFound.Subject != "Greek" {
		t.Errorf("Expected error to name subject Greek, got %s", notFound.Subject)
	}
	if got := engine.Snapshot().State; got != StateFailed {
		t.Errorf("Expected state failed, got %s", got)
	}
}

func TestStartEmptyResult(t *testing.T) {
	source := &fakeSource{questions: nil}
	params := Params{Subject: "DSA", Mode: "Easy", Count: 5}
	engine := NewEngine(params, "alice", "CSE", source, NewMemoryStore())

	if err := engine.Start(context.Background()); !errors.Is(err, ErrEmptyQuestionSet) {
		t.Fatalf("Expected ErrEmptyQuestionSet, got %v", err)
	}
	if got := engine.Snapshot().State; got != StateFailed {
		t.Errorf("Expected state failed, got %s", got)
	}
}

func TestStartFewerThanRequested(t *testing.T) {
	source := &fakeSource{questions: makeQuestions(3)}
	params := Params{Subject: "DSA", Mode: "Easy", Count: 10}
	engine := NewEngine(params, "alice", "CSE", source, NewMemoryStore())
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap := engine.Snapshot()
	if snap.TotalQuestions != 3 {
		t.Errorf("Expected 3 questions, got %d", snap.TotalQuestions)
	}
	if snap.AllottedTime != 3*SecondsPerQuestion {
		t.Errorf("Expected allotted time %d, got %d", 3*SecondsPerQuestion, snap.AllottedTime)
	}
}

func TestStartInitialState(t *testing.T) {
	engine, _, _ := newTestEngine(t, 5)

	snap := engine.Snapshot()
	if snap.State != StateActive {
		t.Fatalf("Expected active, got %s", snap.State)
	}
	if snap.CurrentIndex != 0 {
		t.Errorf("Expected index 0, got %d", snap.CurrentIndex)
	}
	if snap.AnsweredCount != 0 {
		t.Errorf("Expected no answers, got %d", snap.AnsweredCount)
	}
	if snap.RemainingTime != 150 {
		t.Errorf("Expected 150s remaining, got %d", snap.RemainingTime)
	}
	if len(snap.Visited) != 1 || snap.Visited[0] != "q1" {
		t.Errorf("Expected only q1 visited, got %v", snap.Visited)
	}
}

// Scenario: user answers every question correctly and submits manually.
func TestManualSubmitAllCorrect(t *testing.T) {
	engine, _, _ := newTestEngine(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := engine.SelectOption(ctx, "A"); err != nil {
			t.Fatalf("SelectOption failed: %v", err)
		}
		if i < 4 {
			if _, err := engine.GoNext(ctx); err != nil {
				t.Fatalf("GoNext failed: %v", err)
			}
		}
	}

	// Some time passes.
	for i := 0; i < 10; i++ {
		engine.Tick()
	}

	attempt, err := engine.Submit(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if attempt.Score != 5 || attempt.Total != 5 {
		t.Errorf("Expected score 5/5, got %d/%d", attempt.Score, attempt.Total)
	}
	if attempt.TimeTaken != 10 {
		t.Errorf("Expected timeTaken 10, got %d", attempt.TimeTaken)
	}
	if len(attempt.Answers) != 5 {
		t.Errorf("Expected 5 answer records, got %d", len(attempt.Answers))
	}
	if attempt.Username != "alice" || attempt.Branch != "CSE" || attempt.Subject != "DSA" {
		t.Errorf("Attempt identity wrong: %+v", attempt)
	}
}

// Scenario: timer runs out with nothing answered; auto submit fires once
// with remaining time exactly zero.
func TestAutoSubmitOnTimeout(t *testing.T) {
	engine, _, _ := newTestEngine(t, 5)

	var fired int
	var atFire int
	engine.SetAutoSubmitHandler(func(attempt *models.Result) {
		fired++
		atFire = engine.Snapshot().RemainingTime
		if attempt.Score != 0 {
			t.Errorf("Expected score 0, got %d", attempt.Score)
		}
		if len(attempt.Answers) != 0 {
			t.Errorf("Expected empty answer list, got %d", len(attempt.Answers))
		}
		if attempt.Total != 5 {
			t.Errorf("Expected total 5, got %d", attempt.Total)
		}
		if attempt.TimeTaken != 150 {
			t.Errorf("Expected full time taken, got %d", attempt.TimeTaken)
		}
	})

	prev := engine.Snapshot().RemainingTime
	for i := 0; i < 200; i++ {
		engine.Tick()
		cur := engine.Snapshot().RemainingTime
		if cur > prev {
			t.Fatalf("Remaining time increased: %d -> %d", prev, cur)
		}
		prev = cur
	}

	if fired != 1 {
		t.Fatalf("Expected auto submit to fire exactly once, fired %d times", fired)
	}
	if atFire != 0 {
		t.Errorf("Expected remaining 0 at auto submit, got %d", atFire)
	}
	snap := engine.Snapshot()
	if snap.State != StateLocked {
		t.Errorf("Expected locked after timeout, got %s", snap.State)
	}
	if snap.CompletedBy != TriggerTimeout {
		t.Errorf("Expected completed by auto, got %s", snap.CompletedBy)
	}
}

// Scenario: answer question 3, jump away and back; the selection survives.
func TestJumpRetainsAnswer(t *testing.T) {
	engine, _, _ := newTestEngine(t, 5)
	ctx := context.Background()

	if _, err := engine.JumpTo(ctx, 2); err != nil {
		t.Fatalf("JumpTo failed: %v", err)
	}
	if err := engine.SelectOption(ctx, "B"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	if _, err := engine.JumpTo(ctx, 0); err != nil {
		t.Fatalf("JumpTo failed: %v", err)
	}
	record, err := engine.JumpTo(ctx, 2)
	if err != nil {
		t.Fatalf("JumpTo failed: %v", err)
	}
	if record == nil || record.SelectedOption != "B" {
		t.Fatalf("Expected retained selection B, got %+v", record)
	}
	if record.IsCorrect {
		t.Error("Expected B to be incorrect")
	}
}

// Scenario: page reload after manual completion resolves straight to Locked
// without refetching questions.
func TestResumeAfterCompletion(t *testing.T) {
	engine, source, store := newTestEngine(t, 5)
	ctx := context.Background()

	if err := engine.SelectOption(ctx, "A"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if _, err := engine.Submit(ctx, TriggerManual); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	callsBefore := source.calls

	reloaded := NewEngine(engine.Params(), "alice", "CSE", source, store)
	err := reloaded.Start(ctx)
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("Expected ErrAlreadyCompleted, got %v", err)
	}
	if source.calls != callsBefore {
		t.Error("Expected no question refetch on completed resume")
	}
	snap := reloaded.Snapshot()
	if snap.State != StateLocked {
		t.Errorf("Expected locked, got %s", snap.State)
	}
	if snap.CompletedBy != TriggerManual {
		t.Errorf("Expected completed by manual, got %s", snap.CompletedBy)
	}
	attempt := reloaded.Attempt()
	if attempt == nil || attempt.Score != 1 {
		t.Errorf("Expected recovered attempt with score 1, got %+v", attempt)
	}
}

// Scenario: reload mid-quiz restores the identical answer map and visited set.
func TestRestoreRoundTrip(t *testing.T) {
	engine, source, store := newTestEngine(t, 5)
	ctx := context.Background()

	if err := engine.SelectOption(ctx, "A"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if _, err := engine.GoNext(ctx); err != nil {
		t.Fatalf("GoNext failed: %v", err)
	}
	if err := engine.SelectOption(ctx, "C"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	engine.Close()

	reloaded := NewEngine(engine.Params(), "alice", "CSE", source, store)
	if err := reloaded.Start(ctx); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	snap := reloaded.Snapshot()
	if snap.AnsweredCount != 2 {
		t.Fatalf("Expected 2 restored answers, got %d", snap.AnsweredCount)
	}
	if rec := snap.Answers["q1"]; rec.SelectedOption != "A" || !rec.IsCorrect {
		t.Errorf("Restored q1 answer wrong: %+v", rec)
	}
	if rec := snap.Answers["q2"]; rec.SelectedOption != "C" || rec.IsCorrect {
		t.Errorf("Restored q2 answer wrong: %+v", rec)
	}
	visited := make(map[string]bool, len(snap.Visited))
	for _, id := range snap.Visited {
		visited[id] = true
	}
	if !visited["q1"] || !visited["q2"] {
		t.Errorf("Expected q1 and q2 in restored visited set, got %v", snap.Visited)
	}
}

// Scenario: a reload samples a smaller question set for the same parameters.
// Persisted records for questions no longer in the session are dropped, so
// the answered count can never exceed the question count.
func TestRestoreDropsStaleEntries(t *testing.T) {
	engine, source, store := newTestEngine(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := engine.SelectOption(ctx, "A"); err != nil {
			t.Fatalf("SelectOption failed: %v", err)
		}
		if i < 4 {
			if _, err := engine.GoNext(ctx); err != nil {
				t.Fatalf("GoNext failed: %v", err)
			}
		}
	}
	engine.Close()

	source.questions = makeQuestions(2)
	reloaded := NewEngine(engine.Params(), "alice", "CSE", source, store)
	if err := reloaded.Start(ctx); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	snap := reloaded.Snapshot()
	if snap.AnsweredCount > snap.TotalQuestions {
		t.Fatalf("answered_count %d > total_questions %d", snap.AnsweredCount, snap.TotalQuestions)
	}
	if snap.AnsweredCount != 2 {
		t.Errorf("Expected 2 surviving answers, got %d", snap.AnsweredCount)
	}
	for _, id := range snap.Visited {
		if id != "q1" && id != "q2" {
			t.Errorf("Stale question %s in visited set", id)
		}
	}

	// The pruned map is written back, so a further reload starts clean.
	raw, err := store.Get(ctx, engine.Params().answersKey())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var persisted map[string]models.AnswerRecord
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(persisted) != 2 {
		t.Errorf("Expected 2 persisted answers after pruning, got %d", len(persisted))
	}
}

func TestSnapshotAnswersDetached(t *testing.T) {
	engine, _, _ := newTestEngine(t, 3)
	ctx := context.Background()

	if err := engine.SelectOption(ctx, "A"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	snap := engine.Snapshot()

	if _, err := engine.GoNext(ctx); err != nil {
		t.Fatalf("GoNext failed: %v", err)
	}
	if err := engine.SelectOption(ctx, "B"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	if len(snap.Answers) != 1 {
		t.Errorf("Snapshot map changed after later mutation: %d entries", len(snap.Answers))
	}
}

func TestSnapshotNavigation(t *testing.T) {
	engine, _, _ := newTestEngine(t, 1)
	ctx := context.Background()

	if got := engine.Snapshot().Navigation(); got != NavigateResult {
		t.Errorf("Expected result navigation before lock, got %s", got)
	}

	if _, err := engine.Submit(ctx, TriggerManual); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if got := engine.Snapshot().Navigation(); got != NavigateResult {
		t.Errorf("Expected result navigation after manual submit, got %s", got)
	}

	timedOut, _, _ := newTestEngine(t, 1)
	for i := 0; i <= SecondsPerQuestion; i++ {
		timedOut.Tick()
	}
	if got := timedOut.Snapshot().Navigation(); got != NavigateSubmission {
		t.Errorf("Expected submission navigation after timeout, got %s", got)
	}
}

func TestGoNextConfirmationRequired(t *testing.T) {
	engine, _, _ := newTestEngine(t, 2)
	ctx := context.Background()

	if _, err := engine.GoNext(ctx); err != nil {
		t.Fatalf("GoNext failed: %v", err)
	}
	index, err := engine.GoNext(ctx)
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("Expected ErrConfirmationRequired, got %v", err)
	}
	if index != 1 {
		t.Errorf("Expected index unchanged at 1, got %d", index)
	}
	if got := engine.Snapshot().State; got != StateActive {
		t.Errorf("GoNext on last question must not submit, state is %s", got)
	}
}

func TestJumpOutOfRange(t *testing.T) {
	engine, _, _ := newTestEngine(t, 3)
	ctx := context.Background()

	for _, index := range []int{-1, 3, 99} {
		if _, err := engine.JumpTo(ctx, index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("JumpTo(%d): expected ErrIndexOutOfRange, got %v", index, err)
		}
	}
	if got := engine.Snapshot().CurrentIndex; got != 0 {
		t.Errorf("Expected index unchanged at 0, got %d", got)
	}
}

func TestLockedIsTerminal(t *testing.T) {
	engine, _, _ := newTestEngine(t, 3)
	ctx := context.Background()

	if err := engine.SelectOption(ctx, "A"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	first, err := engine.Submit(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	before := engine.Snapshot()

	if err := engine.SelectOption(ctx, "B"); !errors.Is(err, ErrNotActive) {
		t.Errorf("SelectOption after lock: expected ErrNotActive, got %v", err)
	}
	if _, err := engine.GoNext(ctx); !errors.Is(err, ErrNotActive) {
		t.Errorf("GoNext after lock: expected ErrNotActive, got %v", err)
	}
	if _, err := engine.JumpTo(ctx, 1); !errors.Is(err, ErrNotActive) {
		t.Errorf("JumpTo after lock: expected ErrNotActive, got %v", err)
	}
	engine.Tick()

	after := engine.Snapshot()
	if after.AnsweredCount != before.AnsweredCount ||
		after.CurrentIndex != before.CurrentIndex ||
		after.RemainingTime != before.RemainingTime {
		t.Errorf("Observable state changed after lock: before=%+v after=%+v", before, after)
	}

	second, err := engine.Submit(ctx, TriggerManual)
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("Expected ErrAlreadySubmitted, got %v", err)
	}
	if second != first {
		t.Error("Duplicate submit must return the original attempt")
	}
}

func TestScoreBounds(t *testing.T) {
	engine, _, _ := newTestEngine(t, 4)
	ctx := context.Background()

	// Two answered (one correct), two untouched.
	if err := engine.SelectOption(ctx, "A"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if _, err := engine.GoNext(ctx); err != nil {
		t.Fatalf("GoNext failed: %v", err)
	}
	if err := engine.SelectOption(ctx, "D"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	attempt, err := engine.Submit(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	answered := len(attempt.Answers)
	if answered > attempt.Total {
		t.Errorf("answeredCount %d > total %d", answered, attempt.Total)
	}
	if attempt.Score > answered {
		t.Errorf("score %d > answeredCount %d", attempt.Score, answered)
	}
	if answered != 2 || attempt.Score != 1 || attempt.Total != 4 {
		t.Errorf("Expected 1/2 answered of 4, got score=%d answered=%d total=%d",
			attempt.Score, answered, attempt.Total)
	}
}

func TestTimerClampedAtZero(t *testing.T) {
	engine, _, _ := newTestEngine(t, 1)

	for i := 0; i < SecondsPerQuestion+25; i++ {
		engine.Tick()
		if got := engine.Snapshot().RemainingTime; got < 0 {
			t.Fatalf("Remaining time went negative: %d", got)
		}
	}
	if got := engine.Snapshot().RemainingTime; got != 0 {
		t.Errorf("Expected remaining clamped at 0, got %d", got)
	}
}

func TestAnswerOverwrite(t *testing.T) {
	engine, _, _ := newTestEngine(t, 2)
	ctx := context.Background()

	if err := engine.SelectOption(ctx, "B"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if err := engine.SelectOption(ctx, "A"); err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}

	snap := engine.Snapshot()
	if snap.AnsweredCount != 1 {
		t.Fatalf("Expected one record after overwrite, got %d", snap.AnsweredCount)
	}
	if rec := snap.Answers["q1"]; rec.SelectedOption != "A" || !rec.IsCorrect {
		t.Errorf("Expected overwritten answer A/correct, got %+v", rec)
	}
}
