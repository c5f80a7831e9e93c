package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubExpirer struct {
	mu      sync.Mutex
	expired []uuid.UUID
	fail    map[uuid.UUID]error
	swept   int
}

func (s *stubExpirer) ForceExpire(ctx context.Context, attemptID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[attemptID]; ok {
		return err
	}
	s.expired = append(s.expired, attemptID)
	return nil
}

func (s *stubExpirer) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept++
	return 0, nil
}

type stubIndex struct {
	mu        sync.Mutex
	deadlines map[uuid.UUID]time.Time
}

func newStubIndex() *stubIndex {
	return &stubIndex{deadlines: make(map[uuid.UUID]time.Time)}
}

func (s *stubIndex) DueAttempts(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []uuid.UUID
	for attemptID, deadline := range s.deadlines {
		if !deadline.After(now) {
			due = append(due, attemptID)
		}
	}
	return due, nil
}

func (s *stubIndex) RemoveDeadline(ctx context.Context, attemptID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deadlines, attemptID)
	return nil
}

func TestPollOnceExpiresDueAttempts(t *testing.T) {
	expirer := &stubExpirer{}
	index := newStubIndex()

	due := uuid.New()
	notDue := uuid.New()
	index.deadlines[due] = time.Now().Add(-time.Second)
	index.deadlines[notDue] = time.Now().Add(time.Hour)

	w := NewExpiryWorker(expirer, index, time.Second, time.Minute, zerolog.Nop())
	w.pollOnce(context.Background())

	if len(expirer.expired) != 1 || expirer.expired[0] != due {
		t.Fatalf("expected only the due attempt expired, got %v", expirer.expired)
	}
	if _, ok := index.deadlines[due]; ok {
		t.Fatal("expected due entry removed from the index")
	}
	if _, ok := index.deadlines[notDue]; !ok {
		t.Fatal("future entry must stay scheduled")
	}
}

func TestPollOnceKeepsEntryOnFailure(t *testing.T) {
	failing := uuid.New()
	expirer := &stubExpirer{fail: map[uuid.UUID]error{failing: errors.New("db down")}}
	index := newStubIndex()
	index.deadlines[failing] = time.Now().Add(-time.Second)

	w := NewExpiryWorker(expirer, index, time.Second, time.Minute, zerolog.Nop())
	w.pollOnce(context.Background())

	if _, ok := index.deadlines[failing]; !ok {
		t.Fatal("failed expiry must keep its index entry for retry")
	}
}

func TestStartDrainsOnShutdown(t *testing.T) {
	expirer := &stubExpirer{}
	index := newStubIndex()
	due := uuid.New()
	index.deadlines[due] = time.Now().Add(-time.Second)

	w := NewExpiryWorker(expirer, index, time.Hour, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	expirer.mu.Lock()
	defer expirer.mu.Unlock()
	if len(expirer.expired) != 1 {
		t.Fatalf("expected final drain to expire the due attempt, got %d", len(expirer.expired))
	}
}
