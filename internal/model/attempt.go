package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states.
//
// IN_PROGRESS is the only non-terminal state; non-existence of an attempt row
// represents "not started". COMPLETED is terminal but not final: it is used
// when the test contains manually-graded questions whose scores have not been
// folded in yet.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusPassed     AttemptStatus = "PASSED"
	AttemptStatusFailed     AttemptStatus = "FAILED"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Terminal reports whether no further transition is defined out of s.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptStatusInProgress
}

// Attempt represents one user's timed instance of taking one test.
//
// Invariants enforced at the storage layer: at most one IN_PROGRESS attempt
// per (user_id, test_id), and EndTime is set iff Status is terminal.
type Attempt struct {
	ID        uuid.UUID     `json:"id"`
	UserID    int           `json:"user_id"`
	TestID    uuid.UUID     `json:"test_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Status    AttemptStatus `json:"status"`
	Score     *float64      `json:"score,omitempty"`
}

// AttemptView is the start-attempt response payload.
type AttemptView struct {
	ID        uuid.UUID     `json:"id"`
	StartTime time.Time     `json:"start_time"`
	Status    AttemptStatus `json:"status"`
}

// View returns the client-facing projection of the attempt.
func (a *Attempt) View() AttemptView {
	return AttemptView{ID: a.ID, StartTime: a.StartTime, Status: a.Status}
}

// AttemptState is returned on page reload so the client can restore answered
// questions and the remaining time without trusting its own clock.
type AttemptState struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	Status           AttemptStatus     `json:"status"`
	SavedAnswers     map[string]string `json:"saved_answers"`
	RemainingSeconds float64           `json:"remaining_seconds"`
}

// SaveAnswersRequest is the payload for the autosave endpoint. Keys are
// question IDs, values are raw submitted answers.
type SaveAnswersRequest struct {
	Answers map[string]string `json:"answers" binding:"required,min=1"`
}

// SubmitAttemptRequest optionally carries a final answer delta alongside the
// submit action. A delta arriving after the deadline is discarded.
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"omitempty"`
}
