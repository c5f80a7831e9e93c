package model

import (
	"time"

	"github.com/google/uuid"
)

// Test is the read-only test configuration consumed by the attempt lifecycle.
// StartWindow/EndWindow bound when attempts may run; a nil bound means
// unbounded on that side. PassingScorePercent is resolved to the configured
// default at load time when the row has no explicit value.
type Test struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	DurationMinutes     int        `json:"duration_minutes"`
	StartWindow         *time.Time `json:"start_window,omitempty"`
	EndWindow           *time.Time `json:"end_window,omitempty"`
	PassingScorePercent int        `json:"passing_score_percent"`
	IsActive            bool       `json:"is_active"`
}

// TestPaper is the Redis-cached payload sent to exam takers (no correct answers).
type TestPaper struct {
	TestID    uuid.UUID            `json:"test_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}
