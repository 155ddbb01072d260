// Package handlers exposes the v1 HTTP surface of the advice pipeline.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/draftwise/draftwise/internal/conversation"
	"github.com/draftwise/draftwise/internal/services/advice"
	"github.com/draftwise/draftwise/internal/stream"
	"github.com/draftwise/draftwise/pkg/httpext"
	"github.com/draftwise/draftwise/pkg/sse"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// AdviceStreamer is the slice of the advice service the handlers consume.
type AdviceStreamer interface {
	StreamAdvice(ctx context.Context, req advice.Request, sink func(stream.Event) error)
	Advice(ctx context.Context, req advice.Request) (advice.Response, error)
}

// Message mirrors one conversation turn on the wire.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// AdviceRequest is the inbound request body. Either a conversation array or
// a previous_response_id plus user_message must be supplied;
// previous_response_id is authoritative when both appear.
type AdviceRequest struct {
	Conversation       []Message `json:"conversation" validate:"omitempty,dive"`
	UserMessage        string    `json:"user_message"`
	PreviousResponseID string    `json:"previous_response_id"`
	EnableWebSearch    *bool     `json:"enable_web_search"`
	Model              string    `json:"model"`
}

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// HandleAdviceStream streams canonical events for one advice request over SSE.
func HandleAdviceStream(adviceService AdviceStreamer, w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAdviceRequest(w, r)
	if !ok {
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		log.Error().Err(err).Msg("Response writer cannot stream")
		httpext.JsonError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	log.Info().
		Int("message_count", len(req.Conversation)).
		Bool("continuing", req.PreviousResponseID != "").
		Str("client_ip", r.RemoteAddr).
		Msg("Received advice stream request")

	adviceService.StreamAdvice(r.Context(), toServiceRequest(req), func(e stream.Event) error {
		return sw.WriteEvent(string(e.Type), e.Payload())
	})
}

// HandleAdvice is the non-streaming variant: same pipeline, one JSON reply.
func HandleAdvice(adviceService AdviceStreamer, w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAdviceRequest(w, r)
	if !ok {
		return
	}

	resp, err := adviceService.Advice(r.Context(), toServiceRequest(req))
	if err != nil {
		log.Error().Err(err).Msg("Failed to process advice request")
		httpext.JsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode advice response")
	}
}

func decodeAdviceRequest(w http.ResponseWriter, r *http.Request) (AdviceRequest, bool) {
	var req AdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return req, false
	}

	if err := validate.Struct(req); err != nil {
		log.Warn().Err(err).Msg("Request validation failed")
		httpext.JsonError(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return req, false
	}

	if len(req.Conversation) == 0 && req.UserMessage == "" {
		log.Warn().Msg("Client sent request with no message content")
		httpext.JsonError(w, "Either conversation or user_message is required", http.StatusBadRequest)
		return req, false
	}

	return req, true
}

func toServiceRequest(req AdviceRequest) advice.Request {
	turns := make([]conversation.Turn, len(req.Conversation))
	for i, msg := range req.Conversation {
		turns[i] = conversation.Turn{Role: conversation.Role(msg.Role), Content: msg.Content}
	}
	return advice.Request{
		Conversation:       turns,
		UserMessage:        req.UserMessage,
		PreviousResponseID: req.PreviousResponseID,
		EnableWebSearch:    req.EnableWebSearch,
		Model:              req.Model,
	}
}
