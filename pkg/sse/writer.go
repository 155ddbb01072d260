// Package sse implements the line-oriented server-sent-events framing used
// for the canonical event stream: an "event:" line, a single-line "data:"
// JSON payload, and a blank line, flushed per event.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer frames events onto an HTTP response. It requires the underlying
// ResponseWriter to support flushing; buffering proxies would otherwise defeat
// incremental delivery.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter prepares the response for event streaming and returns a framing
// writer. Fails when the ResponseWriter cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Writer{w: w, f: f}, nil
}

// WriteEvent frames one event. The payload is marshalled to a single-line
// JSON object; json.Marshal never emits raw newlines, which keeps the data
// field on one line as the protocol requires.
func (sw *Writer) WriteEvent(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	sw.f.Flush()
	return nil
}
