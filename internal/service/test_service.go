package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LobbyItem is one row of the student lobby: a test plus the caller's
// standing against it.
type LobbyItem struct {
	Test          model.Test           `json:"test"`
	ActiveAttempt *model.AttemptView   `json:"active_attempt,omitempty"`
	LastStatus    *model.AttemptStatus `json:"last_status,omitempty"`
}

// TestService serves test metadata and the student-facing paper. Papers are
// cached in Redis so a roomful of students starting at once does not hammer
// the questions table.
type TestService struct {
	tests    TestStore
	attempts AttemptStore
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(tests TestStore, attempts AttemptStore, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		tests:    tests,
		attempts: attempts,
		rdb:      rdb,
		log:      log.With().Str("component", "test_service").Logger(),
	}
}

// Lobby lists active tests with the caller's attempt standing overlaid.
func (s *TestService) Lobby(ctx context.Context, userID int) ([]LobbyItem, error) {
	tests, err := s.tests.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tests: %w", err)
	}

	items := make([]LobbyItem, 0, len(tests))
	for _, t := range tests {
		item := LobbyItem{Test: t}

		attempts, err := s.attempts.FindByUserAndTest(ctx, userID, t.ID)
		if err != nil {
			return nil, fmt.Errorf("list attempts for test %s: %w", t.ID, err)
		}
		for i := range attempts {
			a := &attempts[i]
			if a.Status == model.AttemptStatusInProgress {
				v := a.View()
				item.ActiveAttempt = &v
				continue
			}
			if item.LastStatus == nil {
				st := a.Status
				item.LastStatus = &st
			}
		}

		items = append(items, item)
	}
	return items, nil
}

// Paper returns the student-facing paper for a test: Redis first, Postgres on
// miss with a best-effort cache fill.
func (s *TestService) Paper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	key := config.CacheKey.TestPaperKey(testID.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		paper := &model.TestPaper{}
		if jsonErr := json.Unmarshal([]byte(raw), paper); jsonErr == nil {
			return paper, nil
		}
		// Corrupt payload, drop it and rebuild from the database.
		s.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("paper cache read failed, falling back to database")
	}

	paper, err := s.buildPaper(ctx, testID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(paper); err == nil {
		ttl := time.Duration(paper.Duration+60) * time.Minute
		if err := s.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("paper cache fill failed")
		}
	}

	return paper, nil
}

// Warm builds and caches the paper for one test.
func (s *TestService) Warm(ctx context.Context, testID uuid.UUID) error {
	paper, err := s.buildPaper(ctx, testID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	ttl := time.Duration(paper.Duration+60) * time.Minute
	return s.rdb.Set(ctx, config.CacheKey.TestPaperKey(testID.String()), payload, ttl).Err()
}

// PrewarmActive warms the paper cache for every active test. Called at
// startup so the first wave of students hits Redis, not Postgres.
func (s *TestService) PrewarmActive(ctx context.Context) {
	tests, err := s.tests.ListActive(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("prewarm: listing active tests failed")
		return
	}

	for _, t := range tests {
		if err := s.Warm(ctx, t.ID); err != nil {
			s.log.Warn().Err(err).Str("test_id", t.ID.String()).Msg("prewarm: warming paper failed")
			continue
		}
	}
	s.log.Info().Int("tests", len(tests)).Msg("paper cache prewarmed")
}

func (s *TestService) buildPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
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

	questions, err := s.tests.ListQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	paper := &model.TestPaper{
		TestID:    t.ID,
		Title:     t.Title,
		Duration:  t.DurationMinutes,
		Questions: make([]model.QuestionForStudent, 0, len(questions)),
	}
	for _, q := range questions {
		paper.Questions = append(paper.Questions, q.ForStudent())
	}
	return paper, nil
}
