package app

import (
	"fmt"
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Rules carries every tunable of the game economy. It is passed to the
// service at construction so tests can run with alternate reward tables.
type Rules struct {
	TimeLimitSeconds    int
	MaxTimeBonus        int
	BonusDivisor        int
	ParticipationPoints int
	PlacementPoints     map[int]int
	DifficultyPoints    map[domain.Difficulty]int
	PointValue          decimal.Decimal
	LeaderboardLimit    int
	Location            *time.Location
}

// DefaultRules returns the production reward table.
func DefaultRules() Rules {
	return Rules{
		TimeLimitSeconds:    300,
		MaxTimeBonus:        50,
		BonusDivisor:        6,
		ParticipationPoints: 10,
		PlacementPoints:     map[int]int{1: 100, 2: 50, 3: 25},
		DifficultyPoints: map[domain.Difficulty]int{
			domain.Easy:   10,
			domain.Medium: 20,
			domain.Hard:   30,
		},
		PointValue:       decimal.NewFromFloat(0.10),
		LeaderboardLimit: 50,
		Location:         time.UTC,
	}
}

// Validate rejects rule sets that would break the scoring formulas.
func (r Rules) Validate() error {
	if r.BonusDivisor <= 0 {
		return fmt.Errorf("bonus divisor must be positive, got %d", r.BonusDivisor)
	}
	if r.MaxTimeBonus < 0 || r.ParticipationPoints < 0 {
		return fmt.Errorf("bonus values must not be negative")
	}
	for rank, points := range r.PlacementPoints {
		if rank < 1 || points < 0 {
			return fmt.Errorf("invalid placement reward %d -> %d", rank, points)
		}
	}
	for _, d := range []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard} {
		if r.DifficultyPoints[d] <= 0 {
			return fmt.Errorf("missing points for difficulty %s", d)
		}
	}
	if r.LeaderboardLimit <= 0 {
		return fmt.Errorf("leaderboard limit must be positive")
	}
	if r.PointValue.IsNegative() {
		return fmt.Errorf("point value must not be negative")
	}
	return nil
}

// PointsFor maps a difficulty tier to the question's maximum points.
func (r Rules) PointsFor(d domain.Difficulty) int {
	return r.DifficultyPoints[d]
}

// PlacementFor returns the placement reward for a rank; unlisted ranks earn nothing.
func (r Rules) PlacementFor(rank int) int {
	return r.PlacementPoints[rank]
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// withPoints returns a copy of set with MaxPoints derived from difficulty.
func (r Rules) withPoints(set domain.QuestionSet) domain.QuestionSet {
	questions := make([]domain.Question, len(set.Questions))
	for i, q := range set.Questions {
		q.MaxPoints = r.PointsFor(q.Difficulty)
		questions[i] = q
	}
	set.Questions = questions
	return set
}
