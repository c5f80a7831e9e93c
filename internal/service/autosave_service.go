package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AutosaveService accepts partial answer maps from the client while an
// attempt is in progress. Saves are idempotent upserts keyed by
// (attempt_id, question_id), so the client's fixed-interval autosave,
// navigation-event saves, and network retries can all repeat safely: the
// last write wins and nothing duplicates.
type AutosaveService struct {
	attempts AttemptStore
	answers  AnswerStore
	cache    AttemptCache
	log      zerolog.Logger
}

// NewAutosaveService creates a new AutosaveService.
func NewAutosaveService(attempts AttemptStore, answers AnswerStore, cache AttemptCache, log zerolog.Logger) *AutosaveService {
	return &AutosaveService{
		attempts: attempts,
		answers:  answers,
		cache:    cache,
		log:      log.With().Str("component", "autosave_service").Logger(),
	}
}

// SaveAnswers upserts a partial answer map for the caller's attempt.
//
// No grading happens here and the attempt row itself is untouched; the only
// side effect is the persisted answer rows (plus a best-effort Redis mirror
// for fast state reloads).
func (s *AutosaveService) SaveAnswers(ctx context.Context, attemptID uuid.UUID, callerUserID int, answers map[uuid.UUID]string) error {
	if len(answers) == 0 {
		return nil
	}

	attempt, err := s.loadOwned(ctx, attemptID, callerUserID)
	if err != nil {
		return err
	}
	if attempt.Status.Terminal() {
		return ErrInvalidState
	}

	if err := s.answers.UpsertBatch(ctx, attemptID, answers); err != nil {
		return fmt.Errorf("upsert answers: %w", err)
	}

	if err := s.cache.MirrorAnswers(ctx, attemptID, answers); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to mirror answers")
	}

	return nil
}

// Answers returns the saved answers for the caller's attempt as a
// question ID → raw answer map.
func (s *AutosaveService) Answers(ctx context.Context, attemptID uuid.UUID, callerUserID int) (map[string]string, error) {
	if _, err := s.loadOwned(ctx, attemptID, callerUserID); err != nil {
		return nil, err
	}

	persisted, err := s.answers.MapByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	out := make(map[string]string, len(persisted))
	for questionID, raw := range persisted {
		out[questionID.String()] = raw
	}
	return out, nil
}

func (s *AutosaveService) loadOwned(ctx context.Context, attemptID uuid.UUID, callerUserID int) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.UserID != callerUserID {
		return nil, ErrForbidden
	}
	return attempt, nil
}
