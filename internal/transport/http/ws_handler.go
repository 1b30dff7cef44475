package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/engine"
)

// WSHandler hosts one engine session per socket. The client supplies the
// selection as query parameters and drives the session with typed JSON
// messages; every state change is pushed back as a "state" message.
type WSHandler struct {
	host          *engine.Host
	defaultExtend int
	upgrader      websocket.Upgrader
}

func NewWSHandler(host *engine.Host, defaultExtend int) *WSHandler {
	if defaultExtend <= 0 {
		defaultExtend = 5
	}
	return &WSHandler{
		host:          host,
		defaultExtend: defaultExtend,
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

type answerPayload struct {
	Option string `json:"option"`
}

type extendPayload struct {
	Count int `json:"count"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the socket into a session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	params, err := paramsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.host.Open(r.Context(), params)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.host.Remove(session.ID())

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: state}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			session.SelectAnswer(r.Context(), payload.Option)
		case "next":
			session.GoToNext(r.Context())
		case "previous":
			session.GoToPrevious(r.Context())
		case "extend":
			var payload extendPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid extend payload"}}
				continue
			}
			count := payload.Count
			if count <= 0 {
				count = h.defaultExtend
			}
			if err := session.Extend(r.Context(), count); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "pause":
			session.Pause(r.Context())
		case "resume":
			session.Resume(r.Context())
		case "submit":
			if err := session.Submit(r.Context()); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func paramsFromQuery(r *http.Request) (engine.Params, error) {
	q := r.URL.Query()
	params := engine.Params{
		Subject:     q.Get("subject"),
		SubjectName: q.Get("subjectName"),
		Chapter:     q.Get("chapter"),
		Level:       domain.Level(q.Get("level")),
	}
	if params.Subject == "" || params.Chapter == "" {
		return engine.Params{}, errMissingSelection
	}
	if !params.Level.Valid() {
		return engine.Params{}, domain.ErrInvalidLevel
	}
	if raw := q.Get("timeLimit"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			return engine.Params{}, errBadTimeLimit
		}
		params.TimeLimit = seconds
	}
	mode, ok := engine.ParseTimerMode(q.Get("timerMode"))
	if !ok {
		return engine.Params{}, errBadTimerMode
	}
	params.TimerMode = mode
	return params, nil
}
