package postgres

import (
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/uptrace/bun"
)

type questionSetModel struct {
	bun.BaseModel `bun:"table:question_sets,alias:qs"`

	ID          string    `bun:"id,pk"`
	Date        time.Time `bun:"set_date,type:date"`
	Theme       string    `bun:"theme"`
	Description string    `bun:"description"`
	Active      bool      `bun:"is_active"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:now()"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            string            `bun:"id,pk"`
	SetID         string            `bun:"question_set_id"`
	Order         int               `bun:"position"`
	Text          string            `bun:"text"`
	Type          string            `bun:"question_type"`
	Difficulty    string            `bun:"difficulty"`
	Options       map[string]string `bun:"options,type:jsonb,nullzero"`
	CorrectAnswer string            `bun:"correct_answer"`
	Explanation   string            `bun:"explanation"`
}

type sessionModel struct {
	bun.BaseModel `bun:"table:game_sessions,alias:gs"`

	ID             string     `bun:"id,pk"`
	UserID         string     `bun:"user_id"`
	Username       string     `bun:"username"`
	SetID          string     `bun:"question_set_id"`
	Date           time.Time  `bun:"set_date,type:date"`
	Status         string     `bun:"status"`
	Score          int        `bun:"score"`
	ElapsedSeconds int        `bun:"elapsed_seconds"`
	StartedAt      time.Time  `bun:"started_at"`
	CompletedAt    *time.Time `bun:"completed_at"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	SessionID      string    `bun:"session_id,pk"`
	QuestionID     string    `bun:"question_id,pk"`
	Answer         string    `bun:"answer"`
	Correct        bool      `bun:"is_correct"`
	PointsEarned   int       `bun:"points_earned"`
	ElapsedSeconds int       `bun:"elapsed_seconds"`
	AnsweredAt     time.Time `bun:"answered_at"`
}

type statsModel struct {
	bun.BaseModel `bun:"table:user_stats,alias:us"`

	UserID          string     `bun:"user_id,pk"`
	GamesPlayed     int        `bun:"games_played"`
	PointsEarned    int        `bun:"points_earned"`
	AvailablePoints int        `bun:"available_points"`
	FirstPlace      int        `bun:"first_place"`
	SecondPlace     int        `bun:"second_place"`
	ThirdPlace      int        `bun:"third_place"`
	PerfectGames    int        `bun:"perfect_games"`
	CurrentStreak   int        `bun:"current_streak"`
	LongestStreak   int        `bun:"longest_streak"`
	LastPlayed      *time.Time `bun:"last_played,type:date"`
	UpdatedAt       time.Time  `bun:"updated_at"`
}

func fromSession(s domain.GameSession) sessionModel {
	return sessionModel{
		ID:             s.ID,
		UserID:         s.UserID,
		Username:       s.Username,
		SetID:          s.SetID,
		Date:           domain.DateOf(s.Date, time.UTC),
		Status:         string(s.Status),
		Score:          s.Score,
		ElapsedSeconds: s.ElapsedSeconds,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
}

func (m sessionModel) toDomain() domain.GameSession {
	return domain.GameSession{
		ID:             m.ID,
		UserID:         m.UserID,
		Username:       m.Username,
		SetID:          m.SetID,
		Date:           domain.DateOf(m.Date, time.UTC),
		Status:         domain.SessionStatus(m.Status),
		Score:          m.Score,
		ElapsedSeconds: m.ElapsedSeconds,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
	}
}

func fromAnswer(a domain.Answer) answerModel {
	return answerModel{
		SessionID:      a.SessionID,
		QuestionID:     a.QuestionID,
		Answer:         a.Submitted,
		Correct:        a.Correct,
		PointsEarned:   a.PointsEarned,
		ElapsedSeconds: a.ElapsedSeconds,
		AnsweredAt:     a.AnsweredAt,
	}
}

func (m answerModel) toDomain() domain.Answer {
	return domain.Answer{
		SessionID:      m.SessionID,
		QuestionID:     m.QuestionID,
		Submitted:      m.Answer,
		Correct:        m.Correct,
		PointsEarned:   m.PointsEarned,
		ElapsedSeconds: m.ElapsedSeconds,
		AnsweredAt:     m.AnsweredAt,
	}
}

func fromStats(s domain.UserStats) statsModel {
	m := statsModel{
		UserID:          s.UserID,
		GamesPlayed:     s.GamesPlayed,
		PointsEarned:    s.PointsEarned,
		AvailablePoints: s.AvailablePoints,
		FirstPlace:      s.FirstPlace,
		SecondPlace:     s.SecondPlace,
		ThirdPlace:      s.ThirdPlace,
		PerfectGames:    s.PerfectGames,
		CurrentStreak:   s.CurrentStreak,
		LongestStreak:   s.LongestStreak,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.LastPlayed != nil {
		last := domain.DateOf(*s.LastPlayed, time.UTC)
		m.LastPlayed = &last
	}
	return m
}

func (m statsModel) toDomain() domain.UserStats {
	s := domain.UserStats{
		UserID:          m.UserID,
		GamesPlayed:     m.GamesPlayed,
		PointsEarned:    m.PointsEarned,
		AvailablePoints: m.AvailablePoints,
		FirstPlace:      m.FirstPlace,
		SecondPlace:     m.SecondPlace,
		ThirdPlace:      m.ThirdPlace,
		PerfectGames:    m.PerfectGames,
		CurrentStreak:   m.CurrentStreak,
		LongestStreak:   m.LongestStreak,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.LastPlayed != nil {
		last := domain.DateOf(*m.LastPlayed, time.UTC)
		s.LastPlayed = &last
	}
	return s
}
