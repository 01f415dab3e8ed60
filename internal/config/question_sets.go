package config

import (
	"fmt"
	"os"
	"strings"

	"daily-trivia-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// questionSetFile is the authoring format of a daily question set.
type questionSetFile struct {
	ID          string         `yaml:"id"`
	Date        string         `yaml:"date"`
	Theme       string         `yaml:"theme"`
	Description string         `yaml:"description"`
	Active      *bool          `yaml:"active"`
	Questions   []questionFile `yaml:"questions"`
}

type questionFile struct {
	ID          string            `yaml:"id"`
	Order       int               `yaml:"order"`
	Text        string            `yaml:"text"`
	Type        string            `yaml:"type"`
	Difficulty  string            `yaml:"difficulty"`
	Options     map[string]string `yaml:"options"`
	Answer      string            `yaml:"answer"`
	Explanation string            `yaml:"explanation"`
}

// LoadQuestionSetFile reads one authored question set. Missing IDs are derived
// from the date and question order; sets are active unless stated otherwise.
func LoadQuestionSetFile(path string) (domain.QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return ParseQuestionSet(data)
}

// ParseQuestionSet decodes and validates a question set document.
func ParseQuestionSet(data []byte) (domain.QuestionSet, error) {
	var file questionSetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("decode question set: %w", err)
	}

	date, err := domain.ParseDate(strings.TrimSpace(file.Date))
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("%w: question set date %q", domain.ErrInvalidInput, file.Date)
	}

	set := domain.QuestionSet{
		ID:          file.ID,
		Date:        date,
		Theme:       file.Theme,
		Description: file.Description,
		Active:      file.Active == nil || *file.Active,
		Questions:   make([]domain.Question, 0, len(file.Questions)),
	}
	if set.ID == "" {
		set.ID = "set-" + domain.FormatDate(date)
	}

	for i, q := range file.Questions {
		order := q.Order
		if order == 0 {
			order = i + 1
		}
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("%s-q%d", set.ID, order)
		}
		set.Questions = append(set.Questions, domain.Question{
			ID:            id,
			SetID:         set.ID,
			Order:         order,
			Text:          q.Text,
			Type:          domain.QuestionType(q.Type),
			Difficulty:    domain.Difficulty(strings.ToLower(q.Difficulty)),
			Options:       q.Options,
			CorrectAnswer: q.Answer,
			Explanation:   q.Explanation,
		})
	}

	if err := set.Validate(); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}
