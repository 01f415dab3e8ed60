package domain

import "errors"

var (
	// ErrNoGameToday is returned when no active question set exists for the requested date.
	ErrNoGameToday = errors.New("no trivia game available today")
	// ErrQuestionSetNotFound indicates the question set content could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrAlreadyPlayed is returned when the player already finished today's game.
	ErrAlreadyPlayed = errors.New("today's trivia has already been played")
	// ErrInvalidSession covers missing sessions, sessions owned by someone else,
	// and sessions that are no longer in progress.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionNotFound is returned by stores when no session row matches.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAlreadyAnswered is returned for a second answer to the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the session's set.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrStatsNotFound is returned by stores when the player has no stats row yet.
	ErrStatsNotFound = errors.New("stats not found")
	// ErrInsufficientPoints is returned when a redemption exceeds the available balance.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrInvalidInput is returned for malformed request values such as negative times.
	ErrInvalidInput = errors.New("invalid input")
)
