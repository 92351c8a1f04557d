package session

import (
	"errors"
	"fmt"

	"quizmaster/internal/models"
)

// State is the explicit lifecycle tag of one quiz attempt. Loading and Failed
// are pre-quiz states; Active is the only state in which mutation is allowed;
// Locked is terminal.
type State string

const (
	StateLoading State = "loading"
	StateActive  State = "active"
	StateLocked  State = "locked"
	StateFailed  State = "failed"
)

// Trigger names which path finalized a session.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "auto"
)

// Navigation tells the caller where to send the user next. Manual submission
// can render results immediately; a timeout must go through the submission
// view, which performs the server save before results are meaningful.
type Navigation string

const (
	NavigateResult     Navigation = "result"
	NavigateSubmission Navigation = "submission"
)

// SecondsPerQuestion fixes the allotted time: 30 seconds for every question
// actually loaded into the session.
const SecondsPerQuestion = 30

var (
	ErrInvalidParams        = errors.New("subject, mode and a positive count are required")
	ErrEmptyQuestionSet     = errors.New("question source returned no questions")
	ErrNotActive            = errors.New("session is not active")
	ErrAlreadySubmitted     = errors.New("session already submitted")
	ErrAlreadyCompleted     = errors.New("quiz already completed for these parameters")
	ErrConfirmationRequired = errors.New("last question reached, submission must be confirmed")
	ErrIndexOutOfRange      = errors.New("question index out of range")
	ErrNoSession            = errors.New("no session found")
)

// Params selects what a session is about. Immutable for the session's
// lifetime; also the namespace for its durable state.
type Params struct {
	Subject string `json:"subject"`
	Mode    string `json:"mode"`
	Count   int    `json:"count"`
}

func (p Params) Validate() error {
	if p.Subject == "" || p.Mode == "" || p.Count < 1 {
		return ErrInvalidParams
	}
	return nil
}

// Durable storage keys, namespaced by (subject, mode). Two sessions with the
// same parameters share these keys: last writer wins, by contract.
func (p Params) answersKey() string   { return fmt.Sprintf("qm_answers_%s_%s", p.Subject, p.Mode) }
func (p Params) visitedKey() string   { return fmt.Sprintf("qm_visited_%s_%s", p.Subject, p.Mode) }
func (p Params) completedKey() string { return fmt.Sprintf("qm_completed_%s_%s", p.Subject, p.Mode) }
func (p Params) completedByKey() string {
	return fmt.Sprintf("qm_completed_by_%s_%s", p.Subject, p.Mode)
}

// HandoffKey is the single slot holding the most recently finalized attempt,
// the fallback display source until the server-assigned ID is known.
const HandoffKey = "quizResults"

// Snapshot is the observable state of a session, safe to hand to a client.
type Snapshot struct {
	State           State                          `json:"state"`
	Subject         string                         `json:"subject"`
	Mode            string                         `json:"mode"`
	CurrentIndex    int                            `json:"current_index"`
	TotalQuestions  int                            `json:"total_questions"`
	AnsweredCount   int                            `json:"answered_count"`
	RemainingTime   int                            `json:"remaining_time"`
	AllottedTime    int                            `json:"allotted_time"`
	Visited         []string                       `json:"visited"`
	CurrentQuestion *models.Question               `json:"current_question,omitempty"`
	Selected        string                         `json:"selected,omitempty"`
	CompletedBy     Trigger                        `json:"completed_by,omitempty"`
	Answers         map[string]models.AnswerRecord `json:"-"`
}

// Navigation returns where a locked session should send the user: the
// submission view when the timeout finalized it, the result view otherwise.
func (s Snapshot) Navigation() Navigation {
	if s.CompletedBy == TriggerTimeout {
		return NavigateSubmission
	}
	return NavigateResult
}
