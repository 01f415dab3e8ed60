package app

import (
	"context"
	"time"

	"daily-trivia-service/internal/domain"
)

// QuestionSetRepository loads the question set of a calendar date, active or
// not. Implementations return domain.ErrQuestionSetNotFound when none exists.
type QuestionSetRepository interface {
	QuestionSet(ctx context.Context, date time.Time) (domain.QuestionSet, error)
}

// Store persists sessions, answers and stats. Every mutation goes through
// RunInTx; when fn returns an error nothing it wrote is kept.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	SessionFor(ctx context.Context, userID, setID string) (domain.GameSession, error)
	Session(ctx context.Context, sessionID string) (domain.GameSession, error)
	Answers(ctx context.Context, sessionID string) ([]domain.Answer, error)
	// CompletedSessions returns up to limit completed sessions of a set in
	// leaderboard order (see SortForLeaderboard).
	CompletedSessions(ctx context.Context, setID string, limit int) ([]domain.GameSession, error)
	Stats(ctx context.Context, userID string) (domain.UserStats, error)
}

// Tx is the set of row operations available inside a transaction. Session
// and stats reads lock their row until the transaction ends.
type Tx interface {
	// CreateSession inserts s unless a session for (s.UserID, s.SetID)
	// already exists, and returns whichever row is stored, locked.
	CreateSession(ctx context.Context, s domain.GameSession) (domain.GameSession, error)
	LockSession(ctx context.Context, sessionID string) (domain.GameSession, error)
	// InsertAnswer reports false without writing when the question was
	// already answered in the session.
	InsertAnswer(ctx context.Context, a domain.Answer) (bool, error)
	AddScore(ctx context.Context, sessionID string, points int) (int, error)
	CompleteSession(ctx context.Context, sessionID string, elapsedSeconds int, at time.Time) (domain.GameSession, error)
	CountAhead(ctx context.Context, setID string, score, elapsedSeconds int) (int, error)
	CountCorrect(ctx context.Context, sessionID string) (int, error)

	EnsureStats(ctx context.Context, userID string, at time.Time) error
	LockStats(ctx context.Context, userID string) (domain.UserStats, error)
	SaveStats(ctx context.Context, stats domain.UserStats) error
}

// LeaderboardCache holds computed leaderboards per date.
type LeaderboardCache interface {
	Leaderboard(ctx context.Context, date time.Time) ([]domain.LeaderboardEntry, bool, error)
	// Version returns a counter that every Invalidate of date advances.
	Version(ctx context.Context, date time.Time) (int64, error)
	// StoreLeaderboard writes entries only while date is still at version
	// and reports whether it did.
	StoreLeaderboard(ctx context.Context, date time.Time, version int64, entries []domain.LeaderboardEntry) (bool, error)
	Invalidate(ctx context.Context, date time.Time) error
}

// EventPublisher receives completion events after they are committed.
type EventPublisher interface {
	PublishCompletion(ctx context.Context, event domain.CompletionEvent) error
}
