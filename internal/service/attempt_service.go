package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examind/examind-backend/internal/grading"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AttemptService drives the attempt lifecycle: start, deadline math,
// submission, and forced expiry. All coordination between concurrent request
// handlers goes through the store's atomicity guarantees; the service itself
// holds no shared mutable state.
type AttemptService struct {
	attempts AttemptStore
	answers  AnswerStore
	tests    TestStore
	cache    AttemptCache
	log      zerolog.Logger

	// now is injected for deadline tests.
	now func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	answers AnswerStore,
	tests TestStore,
	cache AttemptCache,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts: attempts,
		answers:  answers,
		tests:    tests,
		cache:    cache,
		log:      log.With().Str("component", "attempt_service").Logger(),
		now:      time.Now,
	}
}

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	AttemptID uuid.UUID           `json:"attempt_id"`
	Score     float64             `json:"score"`
	Status    model.AttemptStatus `json:"status"`
}

// Deadline returns the authoritative cutoff for an attempt: the earlier of
// the personal duration budget and the test's global end window.
func Deadline(t *model.Test, start time.Time) time.Time {
	deadline := start.Add(time.Duration(t.DurationMinutes) * time.Minute)
	if t.EndWindow != nil && t.EndWindow.Before(deadline) {
		deadline = *t.EndWindow
	}
	return deadline
}

// RemainingTime returns how long the attempt may still run at the given
// instant, floored at zero.
func RemainingTime(t *model.Test, start, now time.Time) time.Duration {
	remaining := Deadline(t, start).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Start begins an attempt for (userID, testID).
//
// Starting is idempotent: if an IN_PROGRESS attempt already exists it is
// returned unchanged. A terminal attempt blocks a fresh start with
// ErrAlreadyCompleted until an external re-authorization removes it. The
// storage-level partial unique index makes the concurrent-duplicate case
// safe: the loser's insert writes nothing and the winner's row is refetched.
func (s *AttemptService) Start(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error) {
	t, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}

	if !t.IsActive {
		return nil, ErrTestInactive
	}

	now := s.now()
	if t.StartWindow != nil && now.Before(*t.StartWindow) {
		return nil, ErrTestNotYetOpen
	}
	if t.EndWindow != nil && !now.Before(*t.EndWindow) {
		return nil, ErrTestClosed
	}

	existing, err := s.attempts.FindByUserAndTest(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	for i := range existing {
		if existing[i].Status == model.AttemptStatusInProgress {
			a := &existing[i]
			s.rememberDeadline(ctx, a, t)
			return a, nil
		}
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyCompleted
	}

	attempt := &model.Attempt{
		UserID: userID,
		TestID: testID,
		Status: model.AttemptStatusInProgress,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A concurrent start won the insert; return its row.
			winner, fetchErr := s.attempts.FindActive(ctx, userID, testID)
			if fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					// The concurrent attempt finalized between the insert and
					// the refetch; treat it like any other terminal attempt.
					return nil, ErrAlreadyCompleted
				}
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			s.rememberDeadline(ctx, winner, t)
			return winner, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.rememberDeadline(ctx, attempt, t)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("user_id", userID).
		Str("test_id", testID.String()).
		Msg("Attempt started")

	return attempt, nil
}

// rememberDeadline caches the start time and schedules the expiry. Cache
// failures are logged, not returned: the worker's database sweep self-heals.
func (s *AttemptService) rememberDeadline(ctx context.Context, a *model.Attempt, t *model.Test) {
	if err := s.cache.RememberStart(ctx, a.ID, a.StartTime); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to cache start time")
	}
	if err := s.cache.ScheduleExpiry(ctx, a.ID, Deadline(t, a.StartTime)); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to schedule expiry")
	}
}

// Submit grades and finalizes an attempt on behalf of its owner.
//
// finalAnswers is an optional last delta; if it arrives after the deadline it
// is discarded and grading uses only the answers already persisted, so a slow
// client cannot buy itself extra time. Submission is single-winner: the
// store's compare-and-swap rejects the second of two concurrent submissions
// with ErrAlreadySubmitted.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, userID int, finalAnswers map[uuid.UUID]string) (*SubmitResult, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, ErrForbidden
	}
	return s.finalize(ctx, attempt, finalAnswers)
}

// ForceExpire finalizes an overdue attempt with whatever answers are
// persisted, equivalent to a client-initiated submit with an empty delta.
// It is a no-op on attempts that are already terminal or not yet due.
func (s *AttemptService) ForceExpire(ctx context.Context, attemptID uuid.UUID) error {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			// Row gone (administrative delete); drop the stale schedule.
			return s.cache.RemoveDeadline(ctx, attemptID)
		}
		return err
	}
	if attempt.Status.Terminal() {
		return s.cache.RemoveDeadline(ctx, attemptID)
	}

	t, err := s.tests.GetByID(ctx, attempt.TestID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	now := s.now()
	if now.Before(Deadline(t, attempt.StartTime)) {
		// Fired early (clock drift or rescheduled test); push the entry back.
		return s.cache.ScheduleExpiry(ctx, attemptID, Deadline(t, attempt.StartTime))
	}

	result, err := s.finalize(ctx, attempt, nil)
	if err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			// The owner's submit raced us and won; nothing left to do.
			return s.cache.RemoveDeadline(ctx, attemptID)
		}
		return err
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("score", result.Score).
		Str("status", string(result.Status)).
		Msg("Attempt force-expired")

	return nil
}

// VerifyActive confirms the user holds an IN_PROGRESS attempt on the test.
// Gate for paper downloads and attempt-scoped streams.
func (s *AttemptService) VerifyActive(ctx context.Context, userID int, testID uuid.UUID) error {
	if _, err := s.attempts.FindActive(ctx, userID, testID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrForbidden
		}
		return fmt.Errorf("find active attempt: %w", err)
	}
	return nil
}

// SweepExpired force-expires every overdue IN_PROGRESS attempt found in the
// database. It backs up the Redis deadline index against lost entries.
func (s *AttemptService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.attempts.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if err := s.ForceExpire(ctx, id); err != nil {
			s.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Sweep expire failed")
			continue
		}
		expired++
	}
	return expired, nil
}

// State returns the attempt's saved answers and remaining seconds so a
// reloading client can restore itself without trusting its own clock.
func (s *AttemptService) State(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptState, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, ErrForbidden
	}

	t, err := s.tests.GetByID(ctx, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	saved, err := s.cache.Answers(ctx, attemptID)
	if err != nil || len(saved) == 0 {
		// Cache miss or Redis trouble: fall back to the source of truth and
		// re-mirror so the next reload is fast again.
		persisted, dbErr := s.answers.MapByAttempt(ctx, attemptID)
		if dbErr != nil {
			return nil, fmt.Errorf("load answers: %w", dbErr)
		}
		saved = make(map[string]string, len(persisted))
		for questionID, raw := range persisted {
			saved[questionID.String()] = raw
		}
		if attempt.Status == model.AttemptStatusInProgress {
			if mirrorErr := s.cache.MirrorAnswers(ctx, attemptID, persisted); mirrorErr != nil {
				s.log.Warn().Err(mirrorErr).Str("attempt_id", attemptID.String()).Msg("Failed to re-mirror answers")
			}
		}
	}

	remaining := 0.0
	if attempt.Status == model.AttemptStatusInProgress {
		remaining = RemainingTime(t, attempt.StartTime, s.now()).Seconds()
	}

	return &model.AttemptState{
		AttemptID:        attemptID,
		Status:           attempt.Status,
		SavedAnswers:     saved,
		RemainingSeconds: remaining,
	}, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func (s *AttemptService) getAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

// finalize persists a late delta if still allowed, grades the persisted
// answers, and commits the terminal transition. Grading is pure, so retrying
// after a persistence failure recomputes the identical result.
func (s *AttemptService) finalize(ctx context.Context, attempt *model.Attempt, finalAnswers map[uuid.UUID]string) (*SubmitResult, error) {
	if attempt.Status.Terminal() {
		return nil, ErrAlreadySubmitted
	}

	t, err := s.tests.GetByID(ctx, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	if len(finalAnswers) > 0 {
		if s.now().After(Deadline(t, attempt.StartTime)) {
			s.log.Warn().
				Str("attempt_id", attempt.ID.String()).
				Int("dropped", len(finalAnswers)).
				Msg("Discarding answer delta submitted after deadline")
		} else if err := s.answers.UpsertBatch(ctx, attempt.ID, finalAnswers); err != nil {
			return nil, fmt.Errorf("save final answers: %w", err)
		}
	}

	saved, err := s.answers.MapByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	questions, err := s.tests.ListQuestions(ctx, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	summary := grading.Grade(saved, questions, t.PassingScorePercent)

	err = s.attempts.Finalize(ctx, attempt.ID, summary.Status, summary.Percentage, summary.Records(attempt.ID))
	if err != nil {
		if errors.Is(err, repository.ErrNotInProgress) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	if err := s.cache.Clear(ctx, attempt.ID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to clear attempt cache")
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Float64("percentage", summary.Percentage).
		Float64("earned", summary.EarnedPoints).
		Float64("total", summary.TotalPoints).
		Str("status", string(summary.Status)).
		Msg("Attempt graded")

	return &SubmitResult{
		AttemptID: attempt.ID,
		Score:     summary.Percentage,
		Status:    summary.Status,
	}, nil
}
