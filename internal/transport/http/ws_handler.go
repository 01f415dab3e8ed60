package http

import (
	"encoding/json"
	"net/http"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler exposes the play flow over a WebSocket: each inbound message is
// one start, answer or complete request answered by exactly one reply.
type WSHandler struct {
	service  *app.TriviaService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TriviaService, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the trivia use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player, ok := playerFrom(r)
	if !ok {
		body, status := errorPayload(h.log, errUnauthenticated)
		writeJSON(w, status, body)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithField("user", player.UserID)
	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

read:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		select {
		case send <- h.dispatch(r, player, inbound):
		case <-writerDone:
			break read
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, player domain.Player, inbound inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		session, err := h.service.StartSession(ctx, player)
		if err != nil {
			return h.errorMessage(err)
		}
		return outboundMessage[any]{Type: "session", Payload: session}

	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return h.errorMessage(domain.ErrInvalidInput)
		}
		result, err := h.service.SubmitAnswer(ctx, player, domain.AnswerSubmission{
			SessionID:      payload.SessionID,
			QuestionID:     payload.QuestionID,
			Answer:         payload.Answer,
			ElapsedSeconds: payload.ElapsedSeconds,
		})
		if err != nil {
			return h.errorMessage(err)
		}
		return outboundMessage[any]{Type: "answerResult", Payload: result}

	case "complete":
		var payload completeRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return h.errorMessage(domain.ErrInvalidInput)
		}
		result, err := h.service.CompleteSession(ctx, player, payload.SessionID, payload.TotalElapsedSeconds)
		if err != nil {
			return h.errorMessage(err)
		}
		return outboundMessage[any]{Type: "completed", Payload: result}

	default:
		return outboundMessage[any]{Type: "error", Payload: errorBody{Error: "invalid_input", Message: "unsupported message type"}}
	}
}

func (h *WSHandler) errorMessage(err error) outboundMessage[any] {
	body, _ := errorPayload(h.log, err)
	return outboundMessage[any]{Type: "error", Payload: body}
}
