// Package grading computes the score of a finished attempt.
//
// The computation is pure and replayable: given the same answers, question
// snapshots, and passing threshold it always yields the same result, so a
// caller can safely retry persistence after a failure.
package grading

import (
	"math"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
)

// OutcomeKind tags the grading outcome of a single answer.
type OutcomeKind int

const (
	// OutcomeAutoGraded means correctness was determined by exact match
	// against the question's answer key.
	OutcomeAutoGraded OutcomeKind = iota
	// OutcomeManualPending means the question requires human review; the
	// answer carries no automatic score.
	OutcomeManualPending
)

// Outcome is the tagged grading result for one question. Correct and Points
// are meaningful only when Kind is OutcomeAutoGraded.
type Outcome struct {
	Kind    OutcomeKind
	Correct bool
	Points  float64
}

// GradedAnswer pairs a question with the raw answer that was evaluated and
// its outcome. One record is produced for every question in the snapshot,
// answered or not, so the persisted result set is complete and auditable.
type GradedAnswer struct {
	QuestionID uuid.UUID
	Answer     string
	Outcome    Outcome
}

// Summary is the aggregate result of grading one attempt.
type Summary struct {
	EarnedPoints float64
	TotalPoints  float64
	// Percentage is earned/total rounded to the nearest whole percent.
	// When manual grading is pending it covers auto-gradable questions only.
	Percentage float64
	Status     model.AttemptStatus
	Answers    []GradedAnswer
}

// Grade scores the attempt's saved answers against the question snapshots.
//
// Every question contributes its points to the possible total; unanswered
// auto-gradable questions count as incorrect, not skipped. Manually-graded
// questions (and auto questions missing an answer key) are left pending and
// excluded from the earned sum. A zero-question set grades to 0 percent,
// FAILED, without dividing.
//
// The terminal status is PASSED/FAILED by threshold comparison only when the
// whole set is auto-gradable; any pending question makes it COMPLETED, since
// a pass/fail call before manual scores are folded in would be meaningless.
func Grade(answers map[uuid.UUID]string, questions []model.Question, passingScorePercent int) Summary {
	var earned, total float64
	manualPending := false

	graded := make([]GradedAnswer, 0, len(questions))

	for _, q := range questions {
		points := float64(q.Points)
		total += points

		raw := answers[q.ID]

		if !q.Kind.AutoGradable() || q.CorrectAnswer == nil {
			manualPending = true
			graded = append(graded, GradedAnswer{
				QuestionID: q.ID,
				Answer:     raw,
				Outcome:    Outcome{Kind: OutcomeManualPending},
			})
			continue
		}

		correct := raw == *q.CorrectAnswer && raw != ""
		score := 0.0
		if correct {
			score = points
			earned += points
		}
		graded = append(graded, GradedAnswer{
			QuestionID: q.ID,
			Answer:     raw,
			Outcome:    Outcome{Kind: OutcomeAutoGraded, Correct: correct, Points: score},
		})
	}

	summary := Summary{
		EarnedPoints: earned,
		TotalPoints:  total,
		Answers:      graded,
	}

	if total > 0 {
		summary.Percentage = math.Round(earned / total * 100)
	}

	switch {
	case manualPending:
		summary.Status = model.AttemptStatusCompleted
	case total == 0:
		summary.Status = model.AttemptStatusFailed
	case summary.Percentage >= float64(passingScorePercent):
		summary.Status = model.AttemptStatusPassed
	default:
		summary.Status = model.AttemptStatusFailed
	}

	return summary
}

// Records converts the graded answers into storage rows for the given
// attempt, mapping the tagged outcome back to nullable columns.
func (s Summary) Records(attemptID uuid.UUID) []model.Answer {
	records := make([]model.Answer, 0, len(s.Answers))
	for _, g := range s.Answers {
		rec := model.Answer{
			AttemptID:  attemptID,
			QuestionID: g.QuestionID,
			Answer:     g.Answer,
		}
		if g.Outcome.Kind == OutcomeAutoGraded {
			correct := g.Outcome.Correct
			score := g.Outcome.Points
			rec.IsCorrect = &correct
			rec.Score = &score
		}
		records = append(records, rec)
	}
	return records
}
