package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/draftwise/draftwise/internal/stream"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const socketWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, implement proper origin checking
	},
}

// socketEvent is one canonical event as framed on the websocket transport:
// the same type tags and payloads as SSE, one JSON message per event.
type socketEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleAdviceSocket serves the canonical event stream over a websocket. The
// client sends one AdviceRequest JSON message; the server answers with the
// event sequence and closes after the terminal event.
func HandleAdviceSocket(adviceService AdviceStreamer, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Could not upgrade connection")
		return
	}
	defer conn.Close()

	var req AdviceRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed socket request")
		writeSocketEvent(conn, stream.NewError("Invalid request format"))
		return
	}
	if len(req.Conversation) == 0 && req.UserMessage == "" {
		writeSocketEvent(conn, stream.NewError("Either conversation or user_message is required"))
		return
	}

	adviceService.StreamAdvice(r.Context(), toServiceRequest(req), func(e stream.Event) error {
		return writeSocketEvent(conn, e)
	})

	deadline := time.Now().Add(socketWriteWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

func writeSocketEvent(conn *websocket.Conn, e stream.Event) error {
	payload, err := stream.MarshalPayload(e)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(socketWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(socketEvent{Type: string(e.Type), Data: payload})
}
