package domain

import "time"

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether no further transition is allowed.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// CanTransition reports whether a session may move from s to next.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	return s == StatusInProgress && next.Terminal()
}

// Player is the authenticated caller as supplied by the identity provider.
type Player struct {
	UserID   string
	Username string
}

// GameSession is one player's play-through of one day's question set.
type GameSession struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId"`
	Username       string        `json:"username"`
	SetID          string        `json:"questionSetId"`
	Date           time.Time     `json:"-"`
	Status         SessionStatus `json:"status"`
	Score          int           `json:"score"`
	ElapsedSeconds int           `json:"elapsedSeconds"`
	StartedAt      time.Time     `json:"startedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
}

// OwnedBy reports whether the session belongs to userID.
func (s GameSession) OwnedBy(userID string) bool {
	return s.UserID == userID
}

// Answer is a recorded answer to one question of a session. Immutable once stored.
type Answer struct {
	SessionID      string    `json:"sessionId"`
	QuestionID     string    `json:"questionId"`
	Submitted      string    `json:"answer"`
	Correct        bool      `json:"isCorrect"`
	PointsEarned   int       `json:"pointsEarned"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// AnswerSubmission is a player's answer request.
type AnswerSubmission struct {
	SessionID      string
	QuestionID     string
	Answer         string
	ElapsedSeconds int
}

// AnswerResult is the post-answer view: only after submitting may the player
// see the correct answer and explanation.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsEarned  int    `json:"pointsEarned"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	CurrentScore  int    `json:"currentScore"`
}

// CompletionResult summarizes a finished session and the rewards granted for it.
type CompletionResult struct {
	SessionID           string `json:"sessionId"`
	Score               int    `json:"score"`
	FinalScore          int    `json:"finalScore"`
	Rank                int    `json:"rank"`
	PlacementPoints     int    `json:"placementPoints"`
	ParticipationPoints int    `json:"participationPoints"`
	TotalBonusPoints    int    `json:"totalBonusPoints"`
	PerfectGame         bool   `json:"perfectGame"`
}

// AnsweredQuestion pairs a stored answer with its now-revealed question.
type AnsweredQuestion struct {
	Question      PublicQuestion `json:"question"`
	Answer        string         `json:"answer"`
	IsCorrect     bool           `json:"isCorrect"`
	PointsEarned  int            `json:"pointsEarned"`
	CorrectAnswer string         `json:"correctAnswer"`
	Explanation   string         `json:"explanation"`
	AnsweredAt    time.Time      `json:"answeredAt"`
}

// SessionDetail is a player's own session with the questions answered so far.
type SessionDetail struct {
	Session    GameSession        `json:"session"`
	Theme      string             `json:"theme"`
	FinalScore int                `json:"finalScore"`
	Answers    []AnsweredQuestion `json:"answers"`
}

// LeaderboardEntry is one positional row of a day's leaderboard.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	Username       string    `json:"username"`
	Score          int       `json:"score"`
	FinalScore     int       `json:"finalScore"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	CompletedAt    time.Time `json:"completedAt"`
}

// CompletionEvent is published after a completion transaction commits.
type CompletionEvent struct {
	SessionID     string    `json:"sessionId"`
	UserID        string    `json:"userId"`
	Date          string    `json:"date"`
	Rank          int       `json:"rank"`
	FinalScore    int       `json:"finalScore"`
	PointsAwarded int       `json:"pointsAwarded"`
	PerfectGame   bool      `json:"perfectGame"`
	CompletedAt   time.Time `json:"completedAt"`
}
