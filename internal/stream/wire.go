package stream

import (
	"encoding/json"
	"fmt"
)

// MarshalPayload encodes the event's payload as a single-line JSON object,
// the shape every transport writes after its type tag.
func MarshalPayload(e Event) ([]byte, error) {
	payload := e.Payload()
	if payload == nil {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return json.Marshal(payload)
}

// DecodeEvent reconstructs a canonical event from its wire type tag and JSON
// payload. Unrecognised types are an error; the protocol is closed.
func DecodeEvent(eventType string, data []byte) (Event, error) {
	switch EventType(eventType) {
	case EventStatusUpdate:
		var payload StatusUpdate
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("decode status_update: %w", err)
		}
		return Event{Type: EventStatusUpdate, Status: &payload}, nil
	case EventTextDelta:
		var payload TextDelta
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("decode text_delta: %w", err)
		}
		return Event{Type: EventTextDelta, Delta: &payload}, nil
	case EventResponseComplete:
		var payload ResponseComplete
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("decode response_complete: %w", err)
		}
		return Event{Type: EventResponseComplete, Complete: &payload}, nil
	case EventError:
		var payload ErrorPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("decode error event: %w", err)
		}
		return Event{Type: EventError, Error: &payload}, nil
	default:
		return Event{}, fmt.Errorf("unknown event type %q", eventType)
	}
}
