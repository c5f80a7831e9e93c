package repository

import (
	"context"
	"fmt"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository handles answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// UpsertBatch writes a partial answer map for one attempt. Each entry is an
// idempotent upsert keyed by (attempt_id, question_id): repeated delivery of
// the same pair overwrites, never duplicates, so client retries and duplicate
// autosave frames are safe. Grading fields are untouched here.
func (r *AnswerRepository) UpsertBatch(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error {
	if len(answers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for questionID, raw := range answers {
		batch.Queue(
			`INSERT INTO answers (attempt_id, question_id, answer)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET answer = EXCLUDED.answer, updated_at = NOW()`,
			attemptID, questionID, raw)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert answers: %w", err)
	}
	return nil
}

// MapByAttempt returns the saved answers for an attempt as a question → raw
// answer map.
func (r *AnswerRepository) MapByAttempt(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, answer FROM answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[uuid.UUID]string)
	for rows.Next() {
		var questionID uuid.UUID
		var raw string
		if err := rows.Scan(&questionID, &raw); err != nil {
			return nil, err
		}
		answers[questionID] = raw
	}
	return answers, rows.Err()
}

// ListByAttempt returns the full answer rows for an attempt, including
// grading fields.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, answer, is_correct, score
		 FROM answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.Answer, &a.IsCorrect, &a.Score); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
