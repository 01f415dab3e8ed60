package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"github.com/uptrace/bun"
)

// Store implements app.Store on Postgres through bun. Row locks taken inside
// RunInTx serialize concurrent requests touching the same session or stats row.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, btx bun.Tx) error {
		return fn(ctx, &tx{db: btx})
	})
}

func (s *Store) SessionFor(ctx context.Context, userID, setID string) (domain.GameSession, error) {
	var m sessionModel
	err := s.db.NewSelect().Model(&m).
		Where("user_id = ?", userID).
		Where("question_set_id = ?", setID).
		Scan(ctx)
	if err != nil {
		return domain.GameSession{}, sessionErr("load session for player", err)
	}
	return m.toDomain(), nil
}

func (s *Store) Session(ctx context.Context, sessionID string) (domain.GameSession, error) {
	var m sessionModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", sessionID).Scan(ctx); err != nil {
		return domain.GameSession{}, sessionErr("load session", err)
	}
	return m.toDomain(), nil
}

func (s *Store) Answers(ctx context.Context, sessionID string) ([]domain.Answer, error) {
	var rows []answerModel
	err := s.db.NewSelect().Model(&rows).
		Where("session_id = ?", sessionID).
		Order("answered_at ASC", "question_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	answers := make([]domain.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, row.toDomain())
	}
	return answers, nil
}

func (s *Store) CompletedSessions(ctx context.Context, setID string, limit int) ([]domain.GameSession, error) {
	var rows []sessionModel
	q := s.db.NewSelect().Model(&rows).
		Where("question_set_id = ?", setID).
		Where("status = ?", string(domain.StatusCompleted)).
		Order("score DESC", "elapsed_seconds ASC", "completed_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("load completed sessions: %w", err)
	}
	sessions := make([]domain.GameSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toDomain())
	}
	return sessions, nil
}

func (s *Store) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	var m statsModel
	if err := s.db.NewSelect().Model(&m).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return domain.UserStats{}, statsErr("load stats", err)
	}
	return m.toDomain(), nil
}

type tx struct {
	db bun.IDB
}

func (t *tx) CreateSession(ctx context.Context, s domain.GameSession) (domain.GameSession, error) {
	m := fromSession(s)
	_, err := t.db.NewInsert().Model(&m).
		On("CONFLICT (user_id, question_set_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("insert session: %w", err)
	}

	var stored sessionModel
	err = t.db.NewSelect().Model(&stored).
		Where("user_id = ?", s.UserID).
		Where("question_set_id = ?", s.SetID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return domain.GameSession{}, sessionErr("lock created session", err)
	}
	return stored.toDomain(), nil
}

func (t *tx) LockSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	var m sessionModel
	err := t.db.NewSelect().Model(&m).
		Where("id = ?", sessionID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return domain.GameSession{}, sessionErr("lock session", err)
	}
	return m.toDomain(), nil
}

func (t *tx) InsertAnswer(ctx context.Context, a domain.Answer) (bool, error) {
	m := fromAnswer(a)
	res, err := t.db.NewInsert().Model(&m).
		On("CONFLICT (session_id, question_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert answer: %w", err)
	}
	return n == 1, nil
}

func (t *tx) AddScore(ctx context.Context, sessionID string, points int) (int, error) {
	var score int
	err := t.db.NewUpdate().Model((*sessionModel)(nil)).
		Set("score = score + ?", points).
		Where("id = ?", sessionID).
		Returning("score").
		Scan(ctx, &score)
	if err != nil {
		return 0, sessionErr("add score", err)
	}
	return score, nil
}

func (t *tx) CompleteSession(ctx context.Context, sessionID string, elapsedSeconds int, at time.Time) (domain.GameSession, error) {
	var m sessionModel
	err := t.db.NewUpdate().Model(&m).
		Set("status = ?", string(domain.StatusCompleted)).
		Set("elapsed_seconds = ?", elapsedSeconds).
		Set("completed_at = ?", at).
		Where("id = ?", sessionID).
		Where("status = ?", string(domain.StatusInProgress)).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameSession{}, domain.ErrInvalidSession
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("complete session: %w", err)
	}
	return m.toDomain(), nil
}

func (t *tx) CountAhead(ctx context.Context, setID string, score, elapsedSeconds int) (int, error) {
	n, err := t.db.NewSelect().Model((*sessionModel)(nil)).
		Where("question_set_id = ?", setID).
		Where("status = ?", string(domain.StatusCompleted)).
		Where("(score > ? OR (score = ? AND elapsed_seconds < ?))", score, score, elapsedSeconds).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count ahead: %w", err)
	}
	return n, nil
}

func (t *tx) CountCorrect(ctx context.Context, sessionID string) (int, error) {
	n, err := t.db.NewSelect().Model((*answerModel)(nil)).
		Where("session_id = ?", sessionID).
		Where("is_correct").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count correct answers: %w", err)
	}
	return n, nil
}

func (t *tx) EnsureStats(ctx context.Context, userID string, at time.Time) error {
	m := statsModel{UserID: userID, UpdatedAt: at}
	_, err := t.db.NewInsert().Model(&m).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure stats: %w", err)
	}
	return nil
}

func (t *tx) LockStats(ctx context.Context, userID string) (domain.UserStats, error) {
	var m statsModel
	err := t.db.NewSelect().Model(&m).
		Where("user_id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return domain.UserStats{}, statsErr("lock stats", err)
	}
	return m.toDomain(), nil
}

func (t *tx) SaveStats(ctx context.Context, stats domain.UserStats) error {
	m := fromStats(stats)
	res, err := t.db.NewUpdate().Model(&m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrStatsNotFound
	}
	return nil
}

func sessionErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrSessionNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func statsErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrStatsNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
