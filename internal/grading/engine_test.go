package grading

import (
	"reflect"
	"testing"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
)

var (
	q1 = uuid.New()
	q2 = uuid.New()
	q3 = uuid.New()
)

func mcq(id uuid.UUID, correct string, points int) model.Question {
	return model.Question{ID: id, Kind: model.QuestionKindMultipleChoice, CorrectAnswer: &correct, Points: points}
}

func essay(id uuid.UUID, points int) model.Question {
	return model.Question{ID: id, Kind: model.QuestionKindEssay, Points: points}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name       string
		answers    map[uuid.UUID]string
		questions  []model.Question
		passing    int
		percentage float64
		status     model.AttemptStatus
		earned     float64
		total      float64
	}{
		{
			name:       "all correct",
			answers:    map[uuid.UUID]string{q1: "b", q2: "c"},
			questions:  []model.Question{mcq(q1, "b", 1), mcq(q2, "c", 1)},
			passing:    60,
			percentage: 100, status: model.AttemptStatusPassed, earned: 2, total: 2,
		},
		{
			name:       "half correct fails at sixty",
			answers:    map[uuid.UUID]string{q1: "b", q2: "x"},
			questions:  []model.Question{mcq(q1, "b", 1), mcq(q2, "c", 1)},
			passing:    60,
			percentage: 50, status: model.AttemptStatusFailed, earned: 1, total: 2,
		},
		{
			name:       "unanswered counts as incorrect",
			answers:    map[uuid.UUID]string{q1: "b"},
			questions:  []model.Question{mcq(q1, "b", 1), mcq(q2, "c", 1)},
			passing:    50,
			percentage: 50, status: model.AttemptStatusPassed, earned: 1, total: 2,
		},
		{
			name:       "threshold boundary inclusive",
			answers:    map[uuid.UUID]string{q1: "a", q2: "b", q3: "x"},
			questions:  []model.Question{mcq(q1, "a", 3), mcq(q2, "b", 3), mcq(q3, "c", 4)},
			passing:    60,
			percentage: 60, status: model.AttemptStatusPassed, earned: 6, total: 10,
		},
		{
			name:       "just below threshold fails",
			answers:    map[uuid.UUID]string{q1: "a"},
			questions:  []model.Question{mcq(q1, "a", 59), mcq(q2, "b", 41)},
			passing:    60,
			percentage: 59, status: model.AttemptStatusFailed, earned: 59, total: 100,
		},
		{
			name:       "zero questions never divides",
			answers:    map[uuid.UUID]string{},
			questions:  nil,
			passing:    60,
			percentage: 0, status: model.AttemptStatusFailed, earned: 0, total: 0,
		},
		{
			name:       "weighted points",
			answers:    map[uuid.UUID]string{q1: "a", q2: "wrong"},
			questions:  []model.Question{mcq(q1, "a", 3), mcq(q2, "b", 1)},
			passing:    60,
			percentage: 75, status: model.AttemptStatusPassed, earned: 3, total: 4,
		},
		{
			name:       "rounds to nearest percent",
			answers:    map[uuid.UUID]string{q1: "a"},
			questions:  []model.Question{mcq(q1, "a", 1), mcq(q2, "b", 1), mcq(q3, "c", 1)},
			passing:    33,
			percentage: 33, status: model.AttemptStatusPassed, earned: 1, total: 3,
		},
		{
			name:       "essay defers to manual grading",
			answers:    map[uuid.UUID]string{q1: "b", q2: "my essay text"},
			questions:  []model.Question{mcq(q1, "b", 1), essay(q2, 1)},
			passing:    60,
			percentage: 50, status: model.AttemptStatusCompleted, earned: 1, total: 2,
		},
		{
			name:       "auto question without key is left pending",
			answers:    map[uuid.UUID]string{q1: "b"},
			questions:  []model.Question{{ID: q1, Kind: model.QuestionKindMultipleChoice, Points: 1}},
			passing:    60,
			percentage: 0, status: model.AttemptStatusCompleted, earned: 0, total: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(tc.answers, tc.questions, tc.passing)
			if got.Percentage != tc.percentage {
				t.Errorf("percentage: got %v, want %v", got.Percentage, tc.percentage)
			}
			if got.Status != tc.status {
				t.Errorf("status: got %s, want %s", got.Status, tc.status)
			}
			if got.EarnedPoints != tc.earned {
				t.Errorf("earned: got %v, want %v", got.EarnedPoints, tc.earned)
			}
			if got.TotalPoints != tc.total {
				t.Errorf("total: got %v, want %v", got.TotalPoints, tc.total)
			}
			if len(got.Answers) != len(tc.questions) {
				t.Errorf("graded answers: got %d, want one per question (%d)", len(got.Answers), len(tc.questions))
			}
		})
	}
}

func TestGradeDeterministic(t *testing.T) {
	answers := map[uuid.UUID]string{q1: "b", q2: "x"}
	questions := []model.Question{mcq(q1, "b", 1), mcq(q2, "c", 1), essay(q3, 2)}

	first := Grade(answers, questions, 60)
	second := Grade(answers, questions, 60)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grading is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestGradeRecords(t *testing.T) {
	attemptID := uuid.New()
	answers := map[uuid.UUID]string{q1: "b", q3: "long answer"}
	questions := []model.Question{mcq(q1, "b", 2), mcq(q2, "c", 1), essay(q3, 3)}

	records := Grade(answers, questions, 60).Records(attemptID)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	byQuestion := make(map[uuid.UUID]model.Answer, len(records))
	for _, r := range records {
		if r.AttemptID != attemptID {
			t.Fatalf("record has wrong attempt id: %s", r.AttemptID)
		}
		byQuestion[r.QuestionID] = r
	}

	correct := byQuestion[q1]
	if correct.IsCorrect == nil || !*correct.IsCorrect || correct.Score == nil || *correct.Score != 2 {
		t.Errorf("correct answer not recorded as 2 points: %+v", correct)
	}

	missed := byQuestion[q2]
	if missed.IsCorrect == nil || *missed.IsCorrect || missed.Score == nil || *missed.Score != 0 {
		t.Errorf("unanswered question not recorded as incorrect zero: %+v", missed)
	}

	pending := byQuestion[q3]
	if pending.IsCorrect != nil || pending.Score != nil {
		t.Errorf("essay answer must stay ungraded: %+v", pending)
	}
	if pending.Answer != "long answer" {
		t.Errorf("essay raw answer lost: %q", pending.Answer)
	}
}
