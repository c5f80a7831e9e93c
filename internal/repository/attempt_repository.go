package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotInProgress is returned by Finalize when the attempt row was not in
// the IN_PROGRESS state, meaning a concurrent submission already won the
// compare-and-swap.
var ErrNotInProgress = errors.New("attempt is not in progress")

// AttemptResult combines user data with attempt details for admin listings.
type AttemptResult struct {
	AttemptID uuid.UUID           `json:"attempt_id"`
	UserID    int                 `json:"user_id"`
	Name      string              `json:"name"`
	Username  string              `json:"username"`
	Score     *float64            `json:"score"`
	Status    model.AttemptStatus `json:"status"`
	StartTime time.Time           `json:"start_time"`
	EndTime   *time.Time          `json:"end_time"`
}

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, user_id, test_id, start_time, end_time, status, score`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.UserID, &a.TestID, &a.StartTime, &a.EndTime, &a.Status, &a.Score)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// FindActive retrieves the IN_PROGRESS attempt for (userID, testID), if any.
// The partial unique index guarantees at most one row matches.
func (r *AttemptRepository) FindActive(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND test_id = $2 AND status = $3`,
		userID, testID, model.AttemptStatusInProgress))
}

// FindByUserAndTest retrieves all attempts for (userID, testID), newest first.
func (r *AttemptRepository) FindByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND test_id = $2
		 ORDER BY start_time DESC`, userID, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.TestID, &a.StartTime, &a.EndTime, &a.Status, &a.Score); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Create inserts a new IN_PROGRESS attempt. The insert targets the partial
// unique index on (user_id, test_id) WHERE status = IN_PROGRESS, so a
// concurrent duplicate start silently inserts nothing; pgx then reports
// ErrNoRows from the RETURNING clause and the caller refetches the winner.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (user_id, test_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, test_id) WHERE status = 'IN_PROGRESS' DO NOTHING
		 RETURNING id, start_time`,
		a.UserID, a.TestID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartTime)
}

// Finalize commits the terminal transition and the graded answer batch as one
// atomic unit. The status update is a compare-and-swap guarded on
// IN_PROGRESS: the losing side of a concurrent submission gets
// ErrNotInProgress and nothing is written.
func (r *AttemptRepository) Finalize(ctx context.Context, attemptID uuid.UUID, status model.AttemptStatus, score float64, graded []model.Answer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin finalize tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, end_time = NOW()
		 WHERE id = $3 AND status = $4`,
		status, score, attemptID, model.AttemptStatusInProgress)
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotInProgress
	}

	batch := &pgx.Batch{}
	for _, ans := range graded {
		batch.Queue(
			`INSERT INTO answers (attempt_id, question_id, answer, is_correct, score)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET is_correct = EXCLUDED.is_correct, score = EXCLUDED.score, updated_at = NOW()`,
			ans.AttemptID, ans.QuestionID, ans.Answer, ans.IsCorrect, ans.Score)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("persist graded answers: %w", err)
	}

	return tx.Commit(ctx)
}

// ListExpired returns IN_PROGRESS attempts whose deadline has passed at the
// given instant, considering both the per-attempt duration budget and the
// test's global end window. Used by the expiry worker's sweep.
func (r *AttemptRepository) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id
		 FROM attempts a
		 JOIN tests t ON a.test_id = t.id
		 WHERE a.status = $1
		   AND (a.start_time + make_interval(mins => t.duration_minutes) <= $2
		        OR (t.end_window IS NOT NULL AND t.end_window <= $2))`,
		model.AttemptStatusInProgress, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByTest retrieves paginated attempt results for a test, for the
// administrative results view. Readers never block exam takers; the finalize
// transaction guarantees they cannot observe a half-graded attempt.
func (r *AttemptRepository) ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int) ([]AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE test_id = $1`, testID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, u.id, u.name, u.username, a.score, a.status, a.start_time, a.end_time
		 FROM attempts a
		 JOIN users u ON a.user_id = u.id
		 WHERE a.test_id = $1
		 ORDER BY u.name ASC, a.start_time DESC
		 LIMIT $2 OFFSET $3`, testID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResult
	for rows.Next() {
		var res AttemptResult
		if err := rows.Scan(
			&res.AttemptID, &res.UserID, &res.Name, &res.Username,
			&res.Score, &res.Status, &res.StartTime, &res.EndTime,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}

	return results, total, rows.Err()
}
