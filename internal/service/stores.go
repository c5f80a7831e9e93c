package service

import (
	"context"
	"time"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
)

// Store interfaces abstract the repository layer behind explicit atomic
// operations, so any storage engine that can satisfy the contract (unique
// partial index, keyed upsert, compare-and-swap finalize) can back the
// lifecycle. The pgx repositories in internal/repository implement them;
// tests use in-memory fakes.

// AttemptStore persists attempts.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	FindActive(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error)
	FindByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) ([]model.Attempt, error)
	// Finalize commits the terminal transition and the graded answers as one
	// atomic unit, guarded by a compare-and-swap on IN_PROGRESS.
	Finalize(ctx context.Context, attemptID uuid.UUID, status model.AttemptStatus, score float64, graded []model.Answer) error
	ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// AnswerStore persists raw answers with idempotent keyed upserts.
type AnswerStore interface {
	UpsertBatch(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error
	MapByAttempt(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]string, error)
}

// TestStore supplies read-only test configuration and question snapshots.
type TestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	ListActive(ctx context.Context) ([]model.Test, error)
	ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
}
