package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

type QuestionKind string

const (
	QuestionKindMultipleChoice QuestionKind = "MULTIPLE_CHOICE"
	QuestionKindEssay          QuestionKind = "ESSAY"
)

// AutoGradable reports whether correctness can be determined by exact match
// against a stored key.
func (k QuestionKind) AutoGradable() bool {
	return k == QuestionKindMultipleChoice
}

// Question is the grading engine's read-only snapshot of a test question.
// CorrectAnswer is nil for manually-graded kinds. Points is resolved to the
// configured default at load time when the row has no explicit weight.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	TestID        uuid.UUID       `json:"test_id"`
	Kind          QuestionKind    `json:"kind"`
	Text          string          `json:"text"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer *string         `json:"correct_answer,omitempty"`
	Points        int             `json:"points"`
}

// QuestionForStudent is a question stripped of its correct answer, safe to
// send to the exam taker.
type QuestionForStudent struct {
	ID      uuid.UUID       `json:"id"`
	Kind    QuestionKind    `json:"kind"`
	Text    string          `json:"text"`
	Options json.RawMessage `json:"options,omitempty"`
	Points  int             `json:"points"`
}

// ForStudent strips the answer key from the question.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:      q.ID,
		Kind:    q.Kind,
		Text:    q.Text,
		Options: q.Options,
		Points:  q.Points,
	}
}
