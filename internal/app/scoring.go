package app

import (
	"strings"

	"daily-trivia-service/internal/domain"
)

// GradeAnswer compares the submission to the correct answer ignoring case and
// surrounding whitespace, so "true" matches "True ".
func GradeAnswer(question domain.Question, submitted string) (bool, int) {
	if normalizeAnswer(submitted) != normalizeAnswer(question.CorrectAnswer) {
		return false, 0
	}
	return true, question.MaxPoints
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TimeBonus is max(0, MaxTimeBonus - elapsed/BonusDivisor) with integer division.
func (r Rules) TimeBonus(elapsedSeconds int) int {
	bonus := r.MaxTimeBonus - elapsedSeconds/r.BonusDivisor
	if bonus < 0 {
		return 0
	}
	return bonus
}

// FinalScore adds the time bonus to the raw score.
func (r Rules) FinalScore(baseScore, elapsedSeconds int) int {
	return baseScore + r.TimeBonus(elapsedSeconds)
}
