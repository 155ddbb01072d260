package stream

import (
	"testing"

	"github.com/draftwise/draftwise/internal/schema"
	"github.com/stretchr/testify/assert"
)

func TestEmitterTerminalExclusivity(t *testing.T) {
	terminals := []Event{
		NewResponseComplete(schema.StructuredAdvice{MainAdvice: "Start Allen"}, "resp_1"),
		NewError("upstream failed"),
	}

	for _, terminal := range terminals {
		t.Run(string(terminal.Type), func(t *testing.T) {
			var seen []Event
			em := NewEmitter(func(e Event) error {
				seen = append(seen, e)
				return nil
			})

			assert.NoError(t, em.Emit(NewStatusUpdate("working", 102)))
			assert.NoError(t, em.Emit(NewTextDelta("chunk")))
			assert.NoError(t, em.Emit(terminal))
			assert.True(t, em.Terminated())

			// Nothing may follow the terminal event, success or error alike.
			assert.ErrorIs(t, em.Emit(NewTextDelta("late")), ErrTerminated)
			assert.ErrorIs(t, em.Emit(NewError("second terminal")), ErrTerminated)

			assert.Len(t, seen, 3)
			terminalCount := 0
			for _, e := range seen {
				if e.Terminal() {
					terminalCount++
				}
			}
			assert.Equal(t, 1, terminalCount)
			assert.True(t, seen[len(seen)-1].Terminal())
		})
	}
}

func TestWireRoundTrip(t *testing.T) {
	score := 0.8
	events := []Event{
		NewStatusUpdate("Searching the web", 102),
		NewTextDelta(`{"main_ad`),
		NewResponseComplete(schema.StructuredAdvice{
			MainAdvice:      "Start Allen",
			Reasoning:       "elite matchup",
			ConfidenceScore: &score,
		}, "resp_42"),
		NewError("Timed out waiting for the model to respond. Please retry."),
	}

	for _, original := range events {
		payload, err := MarshalPayload(original)
		assert.NoError(t, err)

		decoded, err := DecodeEvent(string(original.Type), payload)
		assert.NoError(t, err)
		assert.Equal(t, original.Type, decoded.Type)
		assert.Equal(t, original.Terminal(), decoded.Terminal())
	}

	_, err := DecodeEvent("keepalive", []byte(`{}`))
	assert.Error(t, err, "the protocol is closed to unknown event types")
}
