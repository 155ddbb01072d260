package streamclient

import (
	"testing"

	"github.com/draftwise/draftwise/internal/schema"
	"github.com/draftwise/draftwise/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerHappyPath(t *testing.T) {
	c := NewConsumer(nil)
	assert.Equal(t, PhaseIdle, c.Phase())

	payload := c.Submit("Who should I start at QB?")
	assert.Equal(t, PhaseSending, c.Phase())
	assert.Empty(t, payload.PreviousResponseID)
	require.Len(t, payload.Conversation, 1)

	c.HandleEvent(stream.NewStatusUpdate("Generating advice", 102))
	assert.Equal(t, PhaseSending, c.Phase(), "status alone does not start streaming")
	assert.Equal(t, "Generating advice", c.Status())

	c.HandleEvent(stream.NewTextDelta(`{"main_advice": `))
	c.HandleEvent(stream.NewTextDelta(`"Start Josh Allen"}`))
	assert.Equal(t, PhaseStreaming, c.Phase())
	assert.Equal(t, `{"main_advice": "Start Josh Allen"}`, c.Text())

	c.HandleEvent(stream.NewResponseComplete(schema.StructuredAdvice{MainAdvice: "Start Josh Allen"}, "resp_1"))
	assert.Equal(t, PhaseSettledSuccess, c.Phase())
	assert.Equal(t, "Start Josh Allen", c.Text(), "settled text is the validated advice, not raw JSON")
	require.NotNil(t, c.Advice())

	// The next request rides the response id instead of replaying history.
	next := c.Submit("What about Mahomes?")
	assert.Equal(t, "resp_1", next.PreviousResponseID)
	assert.Nil(t, next.Conversation)
}

func TestConsumerErrorSettlement(t *testing.T) {
	c := NewConsumer(nil)
	c.Submit("anything")

	c.HandleEvent(stream.NewTextDelta("partial"))
	c.HandleEvent(stream.NewError("Something went wrong while generating advice. Please try again."))

	assert.Equal(t, PhaseSettledError, c.Phase())
	assert.NotEmpty(t, c.ErrorMessage())
	assert.Nil(t, c.Advice())

	// Nothing after a terminal event mutates state.
	c.HandleEvent(stream.NewTextDelta("late"))
	assert.Equal(t, PhaseSettledError, c.Phase())
	assert.Equal(t, "partial", c.Text())
}

func TestConsumerErrorPreservesContinuity(t *testing.T) {
	c := NewConsumer(nil)
	c.Submit("first question")
	c.HandleEvent(stream.NewResponseComplete(schema.StructuredAdvice{MainAdvice: "an answer"}, "resp_1"))

	c.Submit("second question")
	c.HandleEvent(stream.NewError("upstream failed"))

	retry := c.Submit("second question")
	assert.Equal(t, "resp_1", retry.PreviousResponseID, "a failed turn must not advance continuity")
}

func TestConsumerCancelDiscardsEvents(t *testing.T) {
	c := NewConsumer(nil)
	c.Submit("anything")
	c.HandleEvent(stream.NewTextDelta("before cancel"))

	c.Cancel()
	c.HandleEvent(stream.NewTextDelta(" after cancel"))
	c.HandleEvent(stream.NewResponseComplete(schema.StructuredAdvice{MainAdvice: "too late"}, "resp_9"))

	assert.Equal(t, PhaseStreaming, c.Phase())
	assert.Equal(t, "before cancel", c.Text())
	assert.Nil(t, c.Advice())
	assert.Empty(t, c.State().LastResponseID, "a cancelled request must not record continuity")
}

func TestConsumerReset(t *testing.T) {
	c := NewConsumer(nil)
	c.Submit("first question")
	c.HandleEvent(stream.NewResponseComplete(schema.StructuredAdvice{MainAdvice: "an answer"}, "resp_1"))

	c.Reset()
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Empty(t, c.Text())
	assert.Nil(t, c.Advice())

	payload := c.Submit("fresh start")
	assert.Empty(t, payload.PreviousResponseID)
	require.Len(t, payload.Conversation, 1)
}
