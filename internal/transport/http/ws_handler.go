package http

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// WSHandler serves a live attempt channel: one socket per attempt carrying
// answer updates and the final submission.
type WSHandler struct {
	engine   Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
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
	QuestionID int64 `json:"questionId"`
	Answer     any   `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type wsErrorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: wsErrorPayload{Message: publicMessage(err), Status: statusFor(err)}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the attempt use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attemptId")
	if attemptID == "" {
		http.Error(w, "missing attemptId", http.StatusBadRequest)
		return
	}
	if err := authorizeAttempt(r.Context(), h.engine, attemptID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	view, err := h.engine.ResumeQuizAttempt(r.Context(), attemptID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	emit(outboundMessage[any]{Type: "attempt", Payload: view})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			dec := json.NewDecoder(bytes.NewReader(inbound.Payload))
			dec.UseNumber()
			if err := dec.Decode(&payload); err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: wsErrorPayload{Message: "invalid answer payload", Status: http.StatusBadRequest}})
				continue
			}
			score, err := h.engine.UpdateAnswerAndScore(r.Context(), attemptID, payload.QuestionID, payload.Answer)
			if err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(outboundMessage[any]{Type: "answerResult", Payload: score})
		case "resume":
			view, err := h.engine.ResumeQuizAttempt(r.Context(), attemptID)
			if err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(outboundMessage[any]{Type: "attempt", Payload: view})
		case "submit":
			result, err := h.engine.SubmitQuizAttempt(r.Context(), attemptID)
			if err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(outboundMessage[any]{Type: "result", Payload: result})
		default:
			emit(outboundMessage[any]{Type: "error", Payload: wsErrorPayload{Message: "unsupported message type", Status: http.StatusBadRequest}})
		}
	}

	close(send)
	<-writerDone
}
