package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStats holds a player's lifetime counters, streaks and redeemable balance.
type UserStats struct {
	UserID          string
	GamesPlayed     int
	PointsEarned    int
	AvailablePoints int
	FirstPlace      int
	SecondPlace     int
	ThirdPlace      int
	PerfectGames    int
	CurrentStreak   int
	LongestStreak   int
	LastPlayed      *time.Time
	UpdatedAt       time.Time
}

// StatsView is the client rendering of UserStats. The discount amount is
// derived at render time and never stored.
type StatsView struct {
	TotalGamesPlayed    int     `json:"totalGamesPlayed"`
	TotalPointsEarned   int     `json:"totalPointsEarned"`
	AvailablePoints     int     `json:"availablePoints"`
	DiscountAmount      string  `json:"discountAmount"`
	FirstPlaceFinishes  int     `json:"firstPlaceFinishes"`
	SecondPlaceFinishes int     `json:"secondPlaceFinishes"`
	ThirdPlaceFinishes  int     `json:"thirdPlaceFinishes"`
	CurrentStreak       int     `json:"currentStreak"`
	LongestStreak       int     `json:"longestStreak"`
	LastPlayedDate      *string `json:"lastPlayedDate"`
	PerfectGames        int     `json:"perfectGames"`
}

// View renders the stats using pointValue as the currency value of one point.
func (s UserStats) View(pointValue decimal.Decimal) StatsView {
	view := StatsView{
		TotalGamesPlayed:    s.GamesPlayed,
		TotalPointsEarned:   s.PointsEarned,
		AvailablePoints:     s.AvailablePoints,
		DiscountAmount:      DiscountFor(s.AvailablePoints, pointValue),
		FirstPlaceFinishes:  s.FirstPlace,
		SecondPlaceFinishes: s.SecondPlace,
		ThirdPlaceFinishes:  s.ThirdPlace,
		CurrentStreak:       s.CurrentStreak,
		LongestStreak:       s.LongestStreak,
		PerfectGames:        s.PerfectGames,
	}
	if s.LastPlayed != nil {
		date := FormatDate(*s.LastPlayed)
		view.LastPlayedDate = &date
	}
	return view
}

// DiscountFor converts points to a currency amount with two decimals.
func DiscountFor(points int, pointValue decimal.Decimal) string {
	return decimal.NewFromInt(int64(points)).Mul(pointValue).StringFixed(2)
}

// Redemption is the outcome of a successful points redemption.
type Redemption struct {
	Redeemed        int    `json:"redeemed"`
	DiscountAmount  string `json:"discountAmount"`
	AvailablePoints int    `json:"availablePoints"`
}
