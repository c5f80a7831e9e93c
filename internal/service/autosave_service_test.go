package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newAutosaveFixture() (*fixture, *AutosaveService) {
	f := newFixture()
	return f, NewAutosaveService(f.attempts, f.answers, f.cache, zerolog.Nop())
}

func TestSaveAnswersUpsertsAndMirrors(t *testing.T) {
	f, svc := newAutosaveFixture()
	testID, qs := f.seedChoiceTest()
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, 1, testID)

	if err := svc.SaveAnswers(ctx, attempt.ID, 1, map[uuid.UUID]string{qs[0]: "A"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	saved, _ := f.answers.MapByAttempt(ctx, attempt.ID)
	if saved[qs[0]] != "A" {
		t.Fatalf("expected persisted answer A, got %q", saved[qs[0]])
	}
	mirrored, _ := f.cache.Answers(ctx, attempt.ID)
	if mirrored[qs[0].String()] != "A" {
		t.Fatalf("expected mirrored answer A, got %q", mirrored[qs[0].String()])
	}
}

func TestSaveAnswersLastWriteWins(t *testing.T) {
	f, svc := newAutosaveFixture()
	testID, qs := f.seedChoiceTest()
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, 1, testID)

	for _, choice := range []string{"A", "B", "B"} {
		if err := svc.SaveAnswers(ctx, attempt.ID, 1, map[uuid.UUID]string{qs[0]: choice}); err != nil {
			t.Fatalf("save %q: %v", choice, err)
		}
	}

	saved, _ := f.answers.MapByAttempt(ctx, attempt.ID)
	if len(saved) != 1 || saved[qs[0]] != "B" {
		t.Fatalf("expected a single row holding B, got %v", saved)
	}
}

func TestSaveAnswersPartialMapLeavesOthersIntact(t *testing.T) {
	f, svc := newAutosaveFixture()
	testID, qs := f.seedChoiceTest()
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, 1, testID)

	svc.SaveAnswers(ctx, attempt.ID, 1, map[uuid.UUID]string{qs[0]: "A"})
	svc.SaveAnswers(ctx, attempt.ID, 1, map[uuid.UUID]string{qs[1]: "C"})

	saved, _ := f.answers.MapByAttempt(ctx, attempt.ID)
	if saved[qs[0]] != "A" || saved[qs[1]] != "C" {
		t.Fatalf("expected both answers retained, got %v", saved)
	}
}

func TestSaveAnswersEmptyMapIsNoOp(t *testing.T) {
	f, svc := newAutosaveFixture()
	testID, _ := f.seedChoiceTest()
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, 1, testID)

	if err := svc.SaveAnswers(ctx, attempt.ID, 1, nil); err != nil {
		t.Fatalf("empty save: %v", err)
	}
	if f.answers.upserts != 0 {
		t.Fatalf("expected no upsert calls, got %d", f.answers.upserts)
	}
}

func TestSaveAnswersRejectsNonOwner(t *testing.T) {
	f, svc := newAutosaveFixture()
	testID, qs := f.seedChoiceTest()
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, 1, testID)

	err := svc.SaveAnswers(ctx, attempt.ID, 2, map[uuid.UUID]string{qs[0]: "A"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSaveAnswersRejectsTerminalAttempt(t *testing.T) {
	f, svc := newAutosaveFixture()
	testID, qs := f.seedChoiceTest()
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, 1, testID)
	if _, err := f.svc.Submit(ctx, attempt.ID, 1, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := svc.SaveAnswers(ctx, attempt.ID, 1, map[uuid.UUID]string{qs[0]: "A"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSaveAnswersUnknownAttempt(t *testing.T) {
	_, svc := newAutosaveFixture()

	err := svc.SaveAnswers(context.Background(), uuid.New(), 1, map[uuid.UUID]string{uuid.New(): "A"})
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}

func TestAnswersReturnsOwnedMap(t *testing.T) {
	f, svc := newAutosaveFixture()
	testID, qs := f.seedChoiceTest()
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, 1, testID)
	svc.SaveAnswers(ctx, attempt.ID, 1, map[uuid.UUID]string{qs[0]: "A"})

	out, err := svc.Answers(ctx, attempt.ID, 1)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if out[qs[0].String()] != "A" {
		t.Fatalf("expected A, got %q", out[qs[0].String()])
	}

	if _, err := svc.Answers(ctx, attempt.ID, 2); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
}
