package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/uptrace/bun"
)

// Importer writes authored question sets into Postgres.
type Importer struct {
	db *bun.DB
}

func NewImporter(db *bun.DB) *Importer {
	return &Importer{db: db}
}

// ImportQuestionSet upserts set and its questions in one transaction and
// removes stored questions missing from set. A set that already has game
// sessions is left untouched and domain.ErrInvalidInput is returned.
func (i *Importer) ImportQuestionSet(ctx context.Context, set domain.QuestionSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	setRow := questionSetModel{
		ID:          set.ID,
		Date:        domain.DateOf(set.Date, time.UTC),
		Theme:       set.Theme,
		Description: set.Description,
		Active:      set.Active,
	}
	questions := make([]questionModel, 0, len(set.Questions))
	ids := make([]string, 0, len(set.Questions))
	for _, q := range set.Questions {
		questions = append(questions, questionModel{
			ID:            q.ID,
			SetID:         set.ID,
			Order:         q.Order,
			Text:          q.Text,
			Type:          string(q.Type),
			Difficulty:    string(q.Difficulty),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
		ids = append(ids, q.ID)
	}

	return i.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// The row lock waits for in-flight session inserts referencing the set.
		var existing questionSetModel
		err := tx.NewSelect().Model(&existing).Where("id = ?", set.ID).For("UPDATE").Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("lock question set %s: %w", set.ID, err)
		default:
			played, err := tx.NewSelect().Model((*sessionModel)(nil)).
				Where("question_set_id = ?", set.ID).
				Exists(ctx)
			if err != nil {
				return fmt.Errorf("check sessions of %s: %w", set.ID, err)
			}
			if played {
				return fmt.Errorf("question set %s already has game sessions: %w", set.ID, domain.ErrInvalidInput)
			}
		}

		_, err = tx.NewInsert().Model(&setRow).
			On("CONFLICT (id) DO UPDATE").
			Set("set_date = EXCLUDED.set_date").
			Set("theme = EXCLUDED.theme").
			Set("description = EXCLUDED.description").
			Set("is_active = EXCLUDED.is_active").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert question set %s: %w", set.ID, err)
		}

		del := tx.NewDelete().Model((*questionModel)(nil)).Where("question_set_id = ?", set.ID)
		if len(ids) > 0 {
			del = del.Where("id NOT IN (?)", bun.In(ids))
		}
		if _, err := del.Exec(ctx); err != nil {
			return fmt.Errorf("prune questions of %s: %w", set.ID, err)
		}

		if len(questions) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&questions).
			On("CONFLICT (id) DO UPDATE").
			Set("position = EXCLUDED.position").
			Set("text = EXCLUDED.text").
			Set("question_type = EXCLUDED.question_type").
			Set("difficulty = EXCLUDED.difficulty").
			Set("options = EXCLUDED.options").
			Set("correct_answer = EXCLUDED.correct_answer").
			Set("explanation = EXCLUDED.explanation").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert questions of %s: %w", set.ID, err)
		}
		return nil
	})
}
