package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

// WSHandler runs an interactive quiz session over a websocket.
type WSHandler struct {
	service  *app.AssignmentService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AssignmentService) *WSHandler {
	return &WSHandler{
		service: service,
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

type resumePayload struct {
	AssignmentID string `json:"assignmentId"`
}

type answerPayload struct {
	AssignmentID string      `json:"assignmentId"`
	QuestionID   string      `json:"questionId"`
	Answer       answerValue `json:"answer"`
}

type submitPayload struct {
	AssignmentID string                 `json:"assignmentId"`
	Answers      map[string]answerValue `json:"answers"`
	TextAnswers  map[string]string      `json:"textAnswers"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the assignment operations.
// The user comes from the identity headers set by the upstream identity provider.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user := identityFromRequest(r)
	if user.UserID == "" {
		writeErr(w, domain.ErrLoginRequired)
		return
	}
	meta := requestMeta(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	fail := func(err error) {
		_, payload := classify(err)
		push(outboundMessage{Type: "error", Payload: payload})
	}
	badPayload := func(kind string) {
		push(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid " + kind + " payload", Code: "bad_request"}})
	}

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			started, err := h.service.Start(ctx, user, meta)
			if err != nil {
				fail(err)
				continue
			}
			push(outboundMessage{Type: "assignment", Payload: started})
		case "resume":
			var payload resumePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				badPayload("resume")
				continue
			}
			view, err := h.service.Get(ctx, payload.AssignmentID, user.UserID)
			if err != nil {
				fail(err)
				continue
			}
			push(outboundMessage{Type: "assignment", Payload: view})
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				badPayload("answer")
				continue
			}
			outcome, err := h.service.SaveAnswer(ctx, payload.AssignmentID, user.UserID, payload.QuestionID, payload.Answer)
			if err != nil {
				fail(err)
				continue
			}
			push(outboundMessage{Type: "answerResult", Payload: outcome})
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				badPayload("submit")
				continue
			}
			req := submitRequest{Answers: payload.Answers, TextAnswers: payload.TextAnswers}
			view, err := h.service.Submit(ctx, payload.AssignmentID, user.UserID, req.choiceAnswers(), req.TextAnswers)
			if err != nil {
				fail(err)
				continue
			}
			push(outboundMessage{Type: "result", Payload: view})
		default:
			push(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type", Code: "bad_request"}})
		}
	}

	close(send)
	<-writerDone
}
