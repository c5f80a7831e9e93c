package model

import (
	"github.com/google/uuid"
)

// Answer is one saved response, unique per (attempt_id, question_id).
//
// IsCorrect and Score stay null until the attempt is submitted; for
// manually-graded questions they remain null after automatic grading too.
// Answers are mutable only while the parent attempt is IN_PROGRESS.
type Answer struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
	IsCorrect  *bool     `json:"is_correct,omitempty"`
	Score      *float64  `json:"score,omitempty"`
}
