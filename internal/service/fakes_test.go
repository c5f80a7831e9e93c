package service

import (
	"context"
	"sync"
	"time"

	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// In-memory stores mirroring the PostgreSQL repositories' contracts,
// including the no-rows signal on a duplicate active insert and the
// compare-and-swap on finalize.

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.Attempt
	graded   map[uuid.UUID][]model.Answer
	expired  []uuid.UUID

	now func() time.Time
}

func newFakeAttemptStore(now func() time.Time) *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts: make(map[uuid.UUID]*model.Attempt),
		graded:   make(map[uuid.UUID][]model.Answer),
		now:      now,
	}
}

func (f *fakeAttemptStore) Create(ctx context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.UserID == a.UserID && existing.TestID == a.TestID && existing.Status == model.AttemptStatusInProgress {
			return pgx.ErrNoRows
		}
	}
	a.ID = uuid.New()
	a.StartTime = f.now()
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) FindActive(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.UserID == userID && a.TestID == testID && a.Status == model.AttemptStatusInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAttemptStore) FindByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID && a.TestID == testID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) Finalize(ctx context.Context, attemptID uuid.UUID, status model.AttemptStatus, score float64, graded []model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return repository.ErrNotInProgress
	}
	end := f.now()
	a.Status = status
	a.Score = &score
	a.EndTime = &end
	f.graded[attemptID] = graded
	return nil
}

func (f *fakeAttemptStore) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.expired...), nil
}

type fakeAnswerStore struct {
	mu      sync.Mutex
	answers map[uuid.UUID]map[uuid.UUID]string
	upserts int
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{answers: make(map[uuid.UUID]map[uuid.UUID]string)}
}

func (f *fakeAnswerStore) UpsertBatch(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	saved, ok := f.answers[attemptID]
	if !ok {
		saved = make(map[uuid.UUID]string)
		f.answers[attemptID] = saved
	}
	for questionID, raw := range answers {
		saved[questionID] = raw
	}
	return nil
}

func (f *fakeAnswerStore) MapByAttempt(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]string, len(f.answers[attemptID]))
	for questionID, raw := range f.answers[attemptID] {
		out[questionID] = raw
	}
	return out, nil
}

type fakeTestStore struct {
	tests     map[uuid.UUID]*model.Test
	questions map[uuid.UUID][]model.Question
}

func newFakeTestStore() *fakeTestStore {
	return &fakeTestStore{
		tests:     make(map[uuid.UUID]*model.Test),
		questions: make(map[uuid.UUID][]model.Question),
	}
}

func (f *fakeTestStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTestStore) ListActive(ctx context.Context) ([]model.Test, error) {
	var out []model.Test
	for _, t := range f.tests {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTestStore) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	return f.questions[testID], nil
}

type fakeCache struct {
	mu        sync.Mutex
	starts    map[uuid.UUID]time.Time
	answers   map[uuid.UUID]map[string]string
	deadlines map[uuid.UUID]time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		starts:    make(map[uuid.UUID]time.Time),
		answers:   make(map[uuid.UUID]map[string]string),
		deadlines: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeCache) RememberStart(ctx context.Context, attemptID uuid.UUID, start time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts[attemptID] = start
	return nil
}

func (f *fakeCache) Start(ctx context.Context, attemptID uuid.UUID) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start, ok := f.starts[attemptID]
	return start, ok, nil
}

func (f *fakeCache) MirrorAnswers(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mirror, ok := f.answers[attemptID]
	if !ok {
		mirror = make(map[string]string)
		f.answers[attemptID] = mirror
	}
	for questionID, raw := range answers {
		mirror[questionID.String()] = raw
	}
	return nil
}

func (f *fakeCache) Answers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.answers[attemptID]))
	for questionID, raw := range f.answers[attemptID] {
		out[questionID] = raw
	}
	return out, nil
}

func (f *fakeCache) ScheduleExpiry(ctx context.Context, attemptID uuid.UUID, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines[attemptID] = deadline
	return nil
}

func (f *fakeCache) DueAttempts(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []uuid.UUID
	for attemptID, deadline := range f.deadlines {
		if !deadline.After(now) {
			due = append(due, attemptID)
		}
		if int64(len(due)) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeCache) RemoveDeadline(ctx context.Context, attemptID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.deadlines, attemptID)
	return nil
}

func (f *fakeCache) Clear(ctx context.Context, attemptID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.starts, attemptID)
	delete(f.answers, attemptID)
	delete(f.deadlines, attemptID)
	return nil
}
