package app

import (
	"sort"
	"time"

	"daily-trivia-service/internal/domain"
)

// Ahead reports whether other finished ahead of a result with the given score
// and time: strictly more points, or equal points in strictly less time.
func Ahead(other domain.GameSession, score, elapsedSeconds int) bool {
	if other.Status != domain.StatusCompleted {
		return false
	}
	if other.Score != score {
		return other.Score > score
	}
	return other.ElapsedSeconds < elapsedSeconds
}

// RankAmong computes the point-in-time rank of target among sessions of the
// same set. Sessions with identical score and time share a rank.
func RankAmong(target domain.GameSession, sessions []domain.GameSession) int {
	rank := 1
	for _, s := range sessions {
		if s.ID == target.ID || s.SetID != target.SetID {
			continue
		}
		if Ahead(s, target.Score, target.ElapsedSeconds) {
			rank++
		}
	}
	return rank
}

// SortForLeaderboard orders completed sessions by raw score descending, then
// elapsed time ascending, then completion time and ID for stable positions.
func SortForLeaderboard(sessions []domain.GameSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ElapsedSeconds != b.ElapsedSeconds {
			return a.ElapsedSeconds < b.ElapsedSeconds
		}
		at, bt := completedAt(a), completedAt(b)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.ID < b.ID
	})
}

// BuildLeaderboard assigns positional ranks to already ordered sessions.
func (r Rules) BuildLeaderboard(sessions []domain.GameSession) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(sessions))
	for i, s := range sessions {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:           i + 1,
			Username:       s.Username,
			Score:          s.Score,
			FinalScore:     r.FinalScore(s.Score, s.ElapsedSeconds),
			ElapsedSeconds: s.ElapsedSeconds,
			CompletedAt:    completedAt(s),
		})
	}
	return entries
}

func completedAt(s domain.GameSession) time.Time {
	if s.CompletedAt == nil {
		return time.Time{}
	}
	return *s.CompletedAt
}
