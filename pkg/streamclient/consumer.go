package streamclient

import (
	"strings"

	"github.com/draftwise/draftwise/internal/conversation"
	"github.com/draftwise/draftwise/internal/schema"
	"github.com/draftwise/draftwise/internal/stream"
)

// Phase is the UI-facing state of one request.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseSettledSuccess
	PhaseSettledError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseSettledSuccess:
		return "settled_success"
	case PhaseSettledError:
		return "settled_error"
	default:
		return "unknown"
	}
}

// Consumer drives UI state transitions from canonical events and keeps the
// conversation's continuity bookkeeping. It is single-goroutine by design:
// the rendering layer owns it and feeds it events in order.
type Consumer struct {
	phase     Phase
	state     *conversation.State
	text      strings.Builder
	status    string
	advice    *schema.StructuredAdvice
	errText   string
	cancelled bool
}

// NewConsumer wraps an existing conversation state, or starts a fresh one
// when state is nil.
func NewConsumer(state *conversation.State) *Consumer {
	if state == nil {
		state = &conversation.State{}
	}
	return &Consumer{phase: PhaseIdle, state: state}
}

// Submit begins a request: builds the payload from conversation state,
// records the user turn, and moves to Sending. The caller sends the returned
// payload over its transport and feeds resulting events to HandleEvent.
func (c *Consumer) Submit(userMessage string) conversation.RequestPayload {
	payload := c.state.BuildRequest(userMessage)
	c.state.RecordUserTurn(userMessage)

	c.phase = PhaseSending
	c.text.Reset()
	c.status = ""
	c.advice = nil
	c.errText = ""
	c.cancelled = false
	return payload
}

// Cancel abandons the in-flight request. Events arriving afterwards are
// discarded; nothing may mutate UI state past this point.
func (c *Consumer) Cancel() {
	c.cancelled = true
}

// HandleEvent applies one canonical event. Events after cancellation or
// after a terminal event are ignored.
func (c *Consumer) HandleEvent(e stream.Event) {
	if c.cancelled || c.phase == PhaseSettledSuccess || c.phase == PhaseSettledError {
		return
	}

	switch e.Type {
	case stream.EventStatusUpdate:
		c.status = e.Status.Message

	case stream.EventTextDelta:
		c.phase = PhaseStreaming
		c.text.WriteString(e.Delta.Delta)

	case stream.EventResponseComplete:
		payload := e.Complete.FinalPayload
		c.phase = PhaseSettledSuccess
		c.advice = &payload
		c.state.OnTerminalSuccess(payload, e.Complete.ResponseID)

	case stream.EventError:
		c.phase = PhaseSettledError
		c.errText = e.Error.Message
		c.state.OnTerminalError()
	}
}

// Reset starts a new conversation: clears continuity and returns to Idle.
func (c *Consumer) Reset() {
	c.state.Reset()
	c.phase = PhaseIdle
	c.text.Reset()
	c.status = ""
	c.advice = nil
	c.errText = ""
	c.cancelled = false
}

// Phase returns the current UI phase.
func (c *Consumer) Phase() Phase {
	return c.phase
}

// Text returns the content to render: the validated final advice once
// settled, otherwise the running streamed text.
func (c *Consumer) Text() string {
	if c.advice != nil {
		return c.advice.MainAdvice
	}
	return c.text.String()
}

// Status returns the latest informational status message.
func (c *Consumer) Status() string {
	return c.status
}

// Advice returns the settled payload, nil before success.
func (c *Consumer) Advice() *schema.StructuredAdvice {
	return c.advice
}

// ErrorMessage returns the terminal error text, empty unless settled in error.
func (c *Consumer) ErrorMessage() string {
	return c.errText
}

// State exposes the conversation state for the next Submit.
func (c *Consumer) State() *conversation.State {
	return c.state
}
