package domain

import (
	"fmt"
	"time"
)

// QuestionType enumerates how a question is answered.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	FillBlank      QuestionType = "fill_blank"
)

// Difficulty selects the point tier of a question.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// Question is a single trivia question of a daily set. It carries the answer
// and explanation, so it must never be handed to clients before they answer;
// see PublicQuestion.
type Question struct {
	ID            string            `json:"id"`
	SetID         string            `json:"setId"`
	Order         int               `json:"order"`
	Text          string            `json:"text"`
	Type          QuestionType      `json:"type"`
	Difficulty    Difficulty        `json:"difficulty"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation"`
	MaxPoints     int               `json:"maxPoints"`
}

// QuestionSet is the fixed bundle of questions for one calendar date.
type QuestionSet struct {
	ID          string     `json:"id"`
	Date        time.Time  `json:"date"`
	Theme       string     `json:"theme"`
	Description string     `json:"description"`
	Active      bool       `json:"active"`
	Questions   []Question `json:"questions"`
}

// Question returns the question with the given ID.
func (s QuestionSet) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks the structural rules content authors must follow.
func (s QuestionSet) Validate() error {
	if s.Date.IsZero() {
		return fmt.Errorf("%w: question set has no date", ErrInvalidInput)
	}
	seen := make(map[int]struct{}, len(s.Questions))
	for _, q := range s.Questions {
		if _, dup := seen[q.Order]; dup {
			return fmt.Errorf("%w: duplicate question order %d", ErrInvalidInput, q.Order)
		}
		seen[q.Order] = struct{}{}

		if !q.Difficulty.Valid() {
			return fmt.Errorf("%w: question %d has unknown difficulty %q", ErrInvalidInput, q.Order, q.Difficulty)
		}
		switch q.Type {
		case MultipleChoice:
			if len(q.Options) == 0 {
				return fmt.Errorf("%w: multiple choice question %d has no options", ErrInvalidInput, q.Order)
			}
		case TrueFalse, FillBlank:
			if len(q.Options) > 0 {
				return fmt.Errorf("%w: question %d of type %s must not carry options", ErrInvalidInput, q.Order, q.Type)
			}
		default:
			return fmt.Errorf("%w: question %d has unknown type %q", ErrInvalidInput, q.Order, q.Type)
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("%w: question %d has no correct answer", ErrInvalidInput, q.Order)
		}
	}
	return nil
}

// PublicQuestion is the pre-answer view of a question.
type PublicQuestion struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Type       QuestionType      `json:"type"`
	Difficulty Difficulty        `json:"difficulty"`
	Options    map[string]string `json:"options,omitempty"`
	Order      int               `json:"order"`
	MaxPoints  int               `json:"maxPoints"`
}

// Public strips the answer and explanation.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Difficulty: q.Difficulty,
		Options:    q.Options,
		Order:      q.Order,
		MaxPoints:  q.MaxPoints,
	}
}

// PublicQuestionSet is the client view of today's game.
type PublicQuestionSet struct {
	ID            string           `json:"id"`
	Date          string           `json:"date"`
	Theme         string           `json:"theme"`
	Description   string           `json:"description"`
	QuestionCount int              `json:"questionCount"`
	Questions     []PublicQuestion `json:"questions"`
}

// Public converts the set to its pre-answer view.
func (s QuestionSet) Public() PublicQuestionSet {
	questions := make([]PublicQuestion, 0, len(s.Questions))
	for _, q := range s.Questions {
		questions = append(questions, q.Public())
	}
	return PublicQuestionSet{
		ID:            s.ID,
		Date:          FormatDate(s.Date),
		Theme:         s.Theme,
		Description:   s.Description,
		QuestionCount: len(questions),
		Questions:     questions,
	}
}

// TodayView is returned by the "today" operation.
type TodayView struct {
	QuestionSet      PublicQuestionSet `json:"questionSet"`
	HasPlayedToday   bool              `json:"hasPlayedToday"`
	TimeLimitSeconds int               `json:"timeLimitSeconds"`
}
