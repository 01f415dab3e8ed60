package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Handler serves the trivia REST API.
type Handler struct {
	service *app.TriviaService
	log     logrus.FieldLogger
}

func NewHandler(service *app.TriviaService, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

// NewRouter wires the REST and WebSocket handlers with request logging.
func NewRouter(service *app.TriviaService, log logrus.FieldLogger) http.Handler {
	h := NewHandler(service, log)
	ws := NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /trivia/today", h.Today)
	mux.HandleFunc("POST /trivia/start", h.Start)
	mux.HandleFunc("POST /trivia/answer", h.Answer)
	mux.HandleFunc("POST /trivia/complete", h.Complete)
	mux.HandleFunc("GET /trivia/leaderboard", h.Leaderboard)
	mux.HandleFunc("GET /trivia/stats", h.Stats)
	mux.HandleFunc("POST /trivia/redeem", h.Redeem)
	mux.HandleFunc("GET /trivia/sessions/{id}", h.Session)
	mux.HandleFunc("GET /trivia/ws", ws.ServeWS)
	return requestLogger(log, mux)
}

type answerRequest struct {
	SessionID      string `json:"sessionId"`
	QuestionID     string `json:"questionId"`
	Answer         string `json:"answer"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

type completeRequest struct {
	SessionID           string `json:"sessionId"`
	TotalElapsedSeconds int    `json:"totalElapsedSeconds"`
}

type redeemRequest struct {
	Points int `json:"points"`
}

func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	var caller *domain.Player
	if player, ok := playerFrom(r); ok {
		caller = &player
	}
	view, err := h.service.TodayGame(r.Context(), caller)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	player, ok := h.requirePlayer(w, r)
	if !ok {
		return
	}
	session, created, err := h.service.OpenSession(r.Context(), player)
	if err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, session)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	player, ok := h.requirePlayer(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), player, domain.AnswerSubmission{
		SessionID:      req.SessionID,
		QuestionID:     req.QuestionID,
		Answer:         req.Answer,
		ElapsedSeconds: req.ElapsedSeconds,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	player, ok := h.requirePlayer(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.CompleteSession(r.Context(), player, req.SessionID, req.TotalElapsedSeconds)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Leaderboard accepts optional date (YYYY-MM-DD, default today) and limit.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	date := h.service.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidInput))
			return
		}
		date = parsed
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(w, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput))
			return
		}
		limit = n
	}

	entries, err := h.service.Leaderboard(r.Context(), date, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	player, ok := h.requirePlayer(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), player.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	player, ok := h.requirePlayer(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if !h.decode(w, r, &req) {
		return
	}
	redemption, err := h.service.Redeem(r.Context(), player.UserID, req.Points)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemption)
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	player, ok := h.requirePlayer(w, r)
	if !ok {
		return
	}
	detail, err := h.service.SessionDetail(r.Context(), player, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) requirePlayer(w http.ResponseWriter, r *http.Request) (domain.Player, bool) {
	player, ok := playerFrom(r)
	if !ok {
		h.fail(w, errUnauthenticated)
	}
	return player, ok
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.fail(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	body, status := errorPayload(h.log, err)
	writeJSON(w, status, body)
}
