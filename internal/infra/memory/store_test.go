package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
)

func TestStoreCreateSessionIsGetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first := newSession("s1", "u1")
	second := newSession("s2", "u1")

	var got []domain.GameSession
	for _, candidate := range []domain.GameSession{first, second} {
		err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
			stored, err := tx.CreateSession(ctx, candidate)
			got = append(got, stored)
			return err
		})
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
	}
	if got[0].ID != "s1" || got[1].ID != "s1" {
		t.Fatalf("expected the first session both times, got %s and %s", got[0].ID, got[1].ID)
	}
	if _, err := store.Session(ctx, "s2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected no second session, got %v", err)
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		if _, err := tx.CreateSession(ctx, newSession("s1", "u1")); err != nil {
			return err
		}
		if _, err := tx.InsertAnswer(ctx, domain.Answer{SessionID: "s1", QuestionID: "q1", PointsEarned: 10}); err != nil {
			return err
		}
		if _, err := tx.AddScore(ctx, "s1", 10); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.Session(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session rolled back, got %v", err)
	}
	answers, _ := store.Answers(ctx, "s1")
	if len(answers) != 0 {
		t.Fatalf("expected answers rolled back, got %d", len(answers))
	}
}

func TestStoreInsertAnswerOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var inserted []bool
	_ = store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		_, _ = tx.CreateSession(ctx, newSession("s1", "u1"))
		for i := 0; i < 2; i++ {
			ok, err := tx.InsertAnswer(ctx, domain.Answer{SessionID: "s1", QuestionID: "q1"})
			if err != nil {
				return err
			}
			inserted = append(inserted, ok)
		}
		return nil
	})
	if !inserted[0] || inserted[1] {
		t.Fatalf("expected only first insert to succeed, got %v", inserted)
	}
}

func TestStoreCompletedSessionsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	finished := []struct {
		id      string
		score   int
		elapsed int
	}{
		{"a", 80, 10},
		{"b", 100, 50},
		{"c", 100, 40},
	}
	for _, f := range finished {
		f := f
		err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
			if _, err := tx.CreateSession(ctx, newSession(f.id, "user-"+f.id)); err != nil {
				return err
			}
			if _, err := tx.AddScore(ctx, f.id, f.score); err != nil {
				return err
			}
			_, err := tx.CompleteSession(ctx, f.id, f.elapsed, at)
			return err
		})
		if err != nil {
			t.Fatalf("seed %s: %v", f.id, err)
		}
	}

	sessions, err := store.CompletedSessions(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("completed sessions: %v", err)
	}
	order := []string{sessions[0].ID, sessions[1].ID, sessions[2].ID}
	if order[0] != "c" || order[1] != "b" || order[2] != "a" {
		t.Fatalf("unexpected order %v", order)
	}

	var ahead int
	_ = store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		ahead, err = tx.CountAhead(ctx, "set-1", 100, 50)
		return err
	})
	if ahead != 1 {
		t.Fatalf("expected one session ahead, got %d", ahead)
	}
}

func TestStoreCompleteTwiceFails(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	at := time.Now()

	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		if _, err := tx.CreateSession(ctx, newSession("s1", "u1")); err != nil {
			return err
		}
		if _, err := tx.CompleteSession(ctx, "s1", 10, at); err != nil {
			return err
		}
		_, err := tx.CompleteSession(ctx, "s1", 20, at)
		return err
	})
	if !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected invalid session, got %v", err)
	}
}

func newSession(id, userID string) domain.GameSession {
	return domain.GameSession{
		ID:        id,
		UserID:    userID,
		Username:  userID,
		SetID:     "set-1",
		Date:      sampleDate(),
		Status:    domain.StatusInProgress,
		StartedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
}
