package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionSetLoader loads a day's question set and its questions from Postgres.
type QuestionSetLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionSetLoader(pool *pgxpool.Pool) *QuestionSetLoader {
	return &QuestionSetLoader{pool: pool}
}

func (l *QuestionSetLoader) LoadQuestionSet(ctx context.Context, date time.Time) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	err := l.pool.QueryRow(ctx,
		`SELECT id, set_date, theme, description, is_active FROM question_sets WHERE set_date = $1`,
		domain.DateOf(date, time.UTC),
	).Scan(&set.ID, &set.Date, &set.Theme, &set.Description, &set.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}
	set.Date = domain.DateOf(set.Date, time.UTC)

	rows, err := l.pool.Query(ctx,
		`SELECT id, position, text, question_type, difficulty, options, correct_answer, explanation
		   FROM questions WHERE question_set_id = $1 ORDER BY position`,
		set.ID,
	)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q       domain.Question
			qType   string
			diff    string
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.Order, &q.Text, &qType, &diff, &options, &q.CorrectAnswer, &q.Explanation); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("scan question: %w", err)
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return domain.QuestionSet{}, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
			}
		}
		q.SetID = set.ID
		q.Type = domain.QuestionType(qType)
		q.Difficulty = domain.Difficulty(diff)
		set.Questions = append(set.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("iterate questions: %w", err)
	}
	return set, nil
}
