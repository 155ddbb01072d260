// Package stream holds the canonical event model shared by every transport
// and the accumulator that turns streamed fragments into a validated payload.
package stream

import (
	"github.com/draftwise/draftwise/internal/schema"
)

// EventType names one canonical event variant as it appears on the wire.
type EventType string

const (
	EventStatusUpdate     EventType = "status_update"
	EventTextDelta        EventType = "text_delta"
	EventResponseComplete EventType = "response_complete"
	EventError            EventType = "error"
)

// StatusUpdate is an informational event; zero or more may occur per stream.
type StatusUpdate struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// TextDelta carries one incremental fragment of the running answer text.
type TextDelta struct {
	Delta string `json:"delta"`
}

// ResponseComplete is the terminal success event. FinalPayload always passes
// schema validation, whether it came from the model or fallback synthesis.
type ResponseComplete struct {
	FinalPayload schema.StructuredAdvice `json:"final_payload"`
	ResponseID   string                  `json:"response_id"`
}

// ErrorPayload is the terminal failure event, mutually exclusive with
// ResponseComplete.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Event is the canonical tagged union. Exactly one of the payload pointers is
// set, matching Type.
type Event struct {
	Type     EventType
	Status   *StatusUpdate
	Delta    *TextDelta
	Complete *ResponseComplete
	Error    *ErrorPayload
}

// Terminal reports whether no further events may follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventResponseComplete || e.Type == EventError
}

// Payload returns the populated variant for encoding, or nil for an
// unrecognised type.
func (e Event) Payload() any {
	switch e.Type {
	case EventStatusUpdate:
		return e.Status
	case EventTextDelta:
		return e.Delta
	case EventResponseComplete:
		return e.Complete
	case EventError:
		return e.Error
	default:
		return nil
	}
}

// NewStatusUpdate builds an informational event.
func NewStatusUpdate(message string, statusCode int) Event {
	return Event{Type: EventStatusUpdate, Status: &StatusUpdate{Message: message, StatusCode: statusCode}}
}

// NewTextDelta builds an incremental text event.
func NewTextDelta(delta string) Event {
	return Event{Type: EventTextDelta, Delta: &TextDelta{Delta: delta}}
}

// NewResponseComplete builds the terminal success event.
func NewResponseComplete(payload schema.StructuredAdvice, responseID string) Event {
	return Event{Type: EventResponseComplete, Complete: &ResponseComplete{FinalPayload: payload, ResponseID: responseID}}
}

// NewError builds the terminal failure event.
func NewError(message string) Event {
	return Event{Type: EventError, Error: &ErrorPayload{Message: message}}
}
