package app

import (
	"time"

	"daily-trivia-service/internal/domain"
)

// Award is the redeemable reward granted for one completed session.
type Award struct {
	Rank          int
	Placement     int
	Participation int
	Perfect       bool
}

// Total is the amount credited to the balance.
func (a Award) Total() int {
	return a.Placement + a.Participation
}

// AwardFor looks up the rewards for a rank.
func (r Rules) AwardFor(rank int, perfect bool) Award {
	return Award{
		Rank:          rank,
		Placement:     r.PlacementFor(rank),
		Participation: r.ParticipationPoints,
		Perfect:       perfect,
	}
}

// NextStreak derives the streak after playing on today. Consecutive days extend
// it; a first game or any gap restarts it at 1.
func NextStreak(current int, lastPlayed *time.Time, today time.Time) int {
	if lastPlayed == nil {
		return 1
	}
	switch days := domain.DaysBetween(*lastPlayed, today); {
	case days == 1:
		return current + 1
	case days > 1:
		return 1
	default:
		if current < 1 {
			return 1
		}
		return current
	}
}

// ApplyCompletion folds one completed session into the player's stats.
func ApplyCompletion(stats domain.UserStats, today time.Time, award Award, now time.Time) domain.UserStats {
	stats.GamesPlayed++

	stats.CurrentStreak = NextStreak(stats.CurrentStreak, stats.LastPlayed, today)
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	played := today
	stats.LastPlayed = &played

	if award.Perfect {
		stats.PerfectGames++
	}
	switch award.Rank {
	case 1:
		stats.FirstPlace++
	case 2:
		stats.SecondPlace++
	case 3:
		stats.ThirdPlace++
	}

	stats.AvailablePoints += award.Total()
	stats.PointsEarned += award.Total()
	stats.UpdatedAt = now
	return stats
}

// Debit removes points from the redeemable balance.
func Debit(stats domain.UserStats, points int, now time.Time) (domain.UserStats, error) {
	if points <= 0 {
		return stats, domain.ErrInvalidInput
	}
	if stats.AvailablePoints < points {
		return stats, domain.ErrInsufficientPoints
	}
	stats.AvailablePoints -= points
	stats.UpdatedAt = now
	return stats, nil
}
