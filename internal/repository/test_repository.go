package repository

import (
	"context"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRepository handles test configuration and question snapshot access.
//
// The passing-score and question-points defaults are resolved here, once per
// load, so downstream computations never re-derive fallbacks.
type TestRepository struct {
	pool                *pgxpool.Pool
	defaultPassingScore int
	defaultPoints       int
}

// NewTestRepository creates a new TestRepository with the configured defaults.
func NewTestRepository(pool *pgxpool.Pool, defaultPassingScore, defaultPoints int) *TestRepository {
	return &TestRepository{
		pool:                pool,
		defaultPassingScore: defaultPassingScore,
		defaultPoints:       defaultPoints,
	}
}

// GetByID retrieves a test configuration.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	var passingScore *int
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, start_window, end_window, passing_score_percent, is_active
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.DurationMinutes, &t.StartWindow, &t.EndWindow, &passingScore, &t.IsActive)
	if err != nil {
		return nil, err
	}

	t.PassingScorePercent = r.defaultPassingScore
	if passingScore != nil && *passingScore > 0 {
		t.PassingScorePercent = *passingScore
	}
	return t, nil
}

// ListActive retrieves all active tests ordered by start window.
func (r *TestRepository) ListActive(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, duration_minutes, start_window, end_window, passing_score_percent, is_active
		 FROM tests
		 WHERE is_active
		 ORDER BY start_window ASC NULLS LAST, title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		var passingScore *int
		if err := rows.Scan(&t.ID, &t.Title, &t.DurationMinutes, &t.StartWindow, &t.EndWindow, &passingScore, &t.IsActive); err != nil {
			return nil, err
		}
		t.PassingScorePercent = r.defaultPassingScore
		if passingScore != nil && *passingScore > 0 {
			t.PassingScorePercent = *passingScore
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// ListQuestions retrieves the question snapshots for a test in display order.
func (r *TestRepository) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, kind, text, options, correct_answer, points
		 FROM questions
		 WHERE test_id = $1
		 ORDER BY order_num ASC, id ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var points *int
		if err := rows.Scan(&q.ID, &q.TestID, &q.Kind, &q.Text, &q.Options, &q.CorrectAnswer, &points); err != nil {
			return nil, err
		}
		q.Points = r.defaultPoints
		if points != nil && *points > 0 {
			q.Points = *points
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
