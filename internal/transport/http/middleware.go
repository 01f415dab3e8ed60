package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Identity headers are set by the upstream gateway after authentication.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "X-Username"
)

// playerFrom reads the caller identity from the gateway headers, falling back
// to the userId and name query parameters browsers use for WebSocket upgrades.
func playerFrom(r *http.Request) (domain.Player, bool) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	username := strings.TrimSpace(r.Header.Get(HeaderUsername))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("userId"))
		username = strings.TrimSpace(r.URL.Query().Get("name"))
	}
	if userID == "" {
		return domain.Player{}, false
	}
	if username == "" {
		username = userID
	}
	return domain.Player{UserID: userID, Username: username}, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// requestLogger logs method, path, status and latency of every request.
func requestLogger(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  rec.status,
			"latency": time.Since(start).String(),
		}).Info("request")
	})
}
