package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"daily-trivia-service/internal/domain"
	"github.com/sirupsen/logrus"
)

var errUnauthenticated = errors.New("missing user identity")

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorCode maps an error to its wire code and HTTP status.
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrNoGameToday):
		return "no_game_today", http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyPlayed):
		return "already_played", http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSession):
		return "invalid_session", http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return "already_answered", http.StatusConflict
	case errors.Is(err, domain.ErrQuestionNotFound):
		return "question_not_found", http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientPoints):
		return "insufficient_points", http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input", http.StatusBadRequest
	case errors.Is(err, errUnauthenticated):
		return "unauthenticated", http.StatusUnauthorized
	default:
		return "internal", http.StatusInternalServerError
	}
}

// errorPayload renders err for clients. Internal failures are logged and
// replaced with a generic message.
func errorPayload(log logrus.FieldLogger, err error) (errorBody, int) {
	code, status := errorCode(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		return errorBody{Error: code, Message: "internal error"}, status
	}
	return errorBody{Error: code, Message: err.Error()}, status
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
