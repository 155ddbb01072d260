package advice

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/draftwise/draftwise/internal/conversation"
	"github.com/draftwise/draftwise/internal/services/history"
	"github.com/draftwise/draftwise/internal/services/searchpolicy"
	"github.com/draftwise/draftwise/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	event ProviderEvent
	err   error
	delay time.Duration
}

type scriptedStream struct {
	steps  []step
	idx    int
	closed atomic.Bool
}

func (s *scriptedStream) Recv() (ProviderEvent, error) {
	if s.idx >= len(s.steps) {
		return ProviderEvent{}, io.EOF
	}
	st := s.steps[s.idx]
	s.idx++
	if st.delay > 0 {
		time.Sleep(st.delay)
	}
	return st.event, st.err
}

func (s *scriptedStream) Close() error {
	s.closed.Store(true)
	return nil
}

type scriptedProvider struct {
	stream  *scriptedStream
	openErr error
	lastReq ProviderRequest
}

func (p *scriptedProvider) Stream(_ context.Context, req ProviderRequest) (ProviderStream, error) {
	p.lastReq = req
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.stream, nil
}

func newTestService(t *testing.T, p Provider, timeouts Timeouts) *Service {
	t.Helper()
	if timeouts.FirstByte == 0 {
		timeouts = Timeouts{FirstByte: time.Second, Idle: time.Second}
	}
	svc, err := NewService(p, history.NewService(nil), nil, searchpolicy.NewService(), nil, "gpt-4.1", timeouts)
	require.NoError(t, err)
	return svc
}

func collect(svc *Service, ctx context.Context, req Request) []stream.Event {
	var events []stream.Event
	svc.StreamAdvice(ctx, req, func(e stream.Event) error {
		events = append(events, e)
		return nil
	})
	return events
}

func deltaSteps(fragments ...string) []step {
	steps := make([]step, 0, len(fragments))
	for _, f := range fragments {
		steps = append(steps, step{event: ProviderEvent{Kind: ProviderDelta, Delta: f}})
	}
	return steps
}

func userRequest(msg string) Request {
	return Request{Conversation: []conversation.Turn{{Role: conversation.RoleUser, Content: msg}}}
}

func assertTerminalExclusivity(t *testing.T, events []stream.Event) {
	t.Helper()
	require.NotEmpty(t, events)
	terminal := 0
	for i, e := range events {
		if e.Terminal() {
			terminal++
			assert.Equal(t, len(events)-1, i, "terminal event must be last")
		}
	}
	assert.Equal(t, 1, terminal, "exactly one terminal event")
}

func TestStreamAdviceSuccess(t *testing.T) {
	steps := append([]step{{event: ProviderEvent{Kind: ProviderStatus, Message: "Searching the web for current information"}}},
		deltaSteps(`{"main_advice": "Start `, `Josh Allen", "confidence_score": 0.9}`)...)
	steps = append(steps, step{event: ProviderEvent{Kind: ProviderDone, ResponseID: "resp_abc", Model: "gpt-4.1-mini"}})

	provider := &scriptedProvider{stream: &scriptedStream{steps: steps}}
	svc := newTestService(t, provider, Timeouts{})

	events := collect(svc, context.Background(), userRequest("Who should I start today?"))
	assertTerminalExclusivity(t, events)

	final := events[len(events)-1]
	require.Equal(t, stream.EventResponseComplete, final.Type)
	assert.Equal(t, "resp_abc", final.Complete.ResponseID)
	assert.Equal(t, "Start Josh Allen", final.Complete.FinalPayload.MainAdvice)
	require.NotNil(t, final.Complete.FinalPayload.ConfidenceScore)
	assert.Equal(t, 0.9, *final.Complete.FinalPayload.ConfidenceScore)
	assert.Equal(t, "gpt-4.1-mini", final.Complete.FinalPayload.ModelIdentifier)

	// Deltas pass through in order ahead of the terminal event.
	var deltas []string
	for _, e := range events {
		if e.Type == stream.EventTextDelta {
			deltas = append(deltas, e.Delta.Delta)
		}
	}
	assert.Equal(t, []string{`{"main_advice": "Start `, `Josh Allen", "confidence_score": 0.9}`}, deltas)

	// Continuity context was recorded under the upstream response id.
	recorded := svc.history.Resolve(context.Background(), "resp_abc")
	require.Len(t, recorded, 2)
	assert.Equal(t, conversation.RoleAssistant, recorded[1].Role)
	assert.Equal(t, "Start Josh Allen", recorded[1].Content)

	assert.True(t, provider.stream.closed.Load(), "upstream stream must be closed")
}

func TestStreamAdviceInvalidPayloadFallsBack(t *testing.T) {
	steps := deltaSteps(`{"main_advice": "Start Allen", "confidence_score": 1.7}`)
	steps = append(steps, step{event: ProviderEvent{Kind: ProviderDone, ResponseID: "resp_bad"}})

	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{steps: steps}}, Timeouts{})
	events := collect(svc, context.Background(), userRequest("Start Allen?"))
	assertTerminalExclusivity(t, events)

	final := events[len(events)-1]
	require.Equal(t, stream.EventResponseComplete, final.Type,
		"validation failure is recovered locally, never surfaced as an error event")
	assert.Equal(t, "Start Allen", final.Complete.FinalPayload.MainAdvice)
	assert.Nil(t, final.Complete.FinalPayload.ConfidenceScore)
}

func TestStreamAdviceTruncatedStream(t *testing.T) {
	steps := deltaSteps(`{"main_adv`)
	steps = append(steps, step{event: ProviderEvent{Kind: ProviderDone, ResponseID: "resp_cut"}})

	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{steps: steps}}, Timeouts{})
	events := collect(svc, context.Background(), userRequest("quick one"))
	assertTerminalExclusivity(t, events)

	final := events[len(events)-1]
	require.Equal(t, stream.EventResponseComplete, final.Type)
	assert.Contains(t, final.Complete.FinalPayload.MainAdvice, "Sorry")
}

func TestStreamAdviceUnexpectedEOF(t *testing.T) {
	// The stream ends without a done event; accumulated text is salvaged and
	// a synthetic response id issued.
	steps := deltaSteps(`{"main_advice": "Bench Cousins"}`)

	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{steps: steps}}, Timeouts{})
	events := collect(svc, context.Background(), userRequest("bench him?"))
	assertTerminalExclusivity(t, events)

	final := events[len(events)-1]
	require.Equal(t, stream.EventResponseComplete, final.Type)
	assert.Equal(t, "Bench Cousins", final.Complete.FinalPayload.MainAdvice)
	assert.Contains(t, final.Complete.ResponseID, "resp_")
}

func TestStreamAdviceUpstreamError(t *testing.T) {
	steps := deltaSteps("partial")
	steps = append(steps, step{err: errors.New("connection reset")})

	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{steps: steps}}, Timeouts{})
	events := collect(svc, context.Background(), userRequest("anything"))
	assertTerminalExclusivity(t, events)

	final := events[len(events)-1]
	require.Equal(t, stream.EventError, final.Type)
	assert.Equal(t, msgUpstream, final.Error.Message)
}

func TestStreamAdviceOpenFailure(t *testing.T) {
	svc := newTestService(t, &scriptedProvider{openErr: errors.New("dial tcp: refused")}, Timeouts{})
	events := collect(svc, context.Background(), userRequest("anything"))
	assertTerminalExclusivity(t, events)

	final := events[len(events)-1]
	require.Equal(t, stream.EventError, final.Type)
	assert.Equal(t, msgUnavailable, final.Error.Message)
}

func TestStreamAdviceFirstByteTimeout(t *testing.T) {
	steps := []step{{event: ProviderEvent{Kind: ProviderDelta, Delta: "late"}, delay: 300 * time.Millisecond}}
	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{steps: steps}},
		Timeouts{FirstByte: 30 * time.Millisecond, Idle: 30 * time.Millisecond})

	events := collect(svc, context.Background(), userRequest("anything"))
	assertTerminalExclusivity(t, events)

	final := events[len(events)-1]
	require.Equal(t, stream.EventError, final.Type)
	assert.Equal(t, msgTimeout, final.Error.Message, "timeouts carry a distinguishable message")
}

func TestStreamAdviceIdleTimeout(t *testing.T) {
	steps := deltaSteps(`{"main_advice": "Sta`)
	steps = append(steps, step{event: ProviderEvent{Kind: ProviderDelta, Delta: "ll"}, delay: 300 * time.Millisecond})

	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{steps: steps}},
		Timeouts{FirstByte: time.Second, Idle: 30 * time.Millisecond})

	events := collect(svc, context.Background(), userRequest("anything"))
	assertTerminalExclusivity(t, events)
	assert.Equal(t, msgTimeout, events[len(events)-1].Error.Message)
}

func TestStreamAdviceCancellation(t *testing.T) {
	steps := deltaSteps("first")
	steps = append(steps, step{event: ProviderEvent{Kind: ProviderDelta, Delta: "never"}, delay: 300 * time.Millisecond})

	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{steps: steps}}, Timeouts{})

	ctx, cancel := context.WithCancel(context.Background())
	var events []stream.Event
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	svc.StreamAdvice(ctx, userRequest("anything"), func(e stream.Event) error {
		events = append(events, e)
		return nil
	})

	// Cancellation is not an error: processing stops with no terminal event.
	for _, e := range events {
		assert.False(t, e.Terminal(), "no terminal event after cancellation, got %v", e.Type)
	}
}

func TestStreamAdviceEmptyRequest(t *testing.T) {
	svc := newTestService(t, &scriptedProvider{stream: &scriptedStream{}}, Timeouts{})
	events := collect(svc, context.Background(), Request{})
	assertTerminalExclusivity(t, events)
	assert.Equal(t, msgNoMessage, events[len(events)-1].Error.Message)
}

func TestStreamAdviceContinuityResolution(t *testing.T) {
	provider := &scriptedProvider{stream: &scriptedStream{steps: append(
		deltaSteps(`{"main_advice": "Yes, start Mahomes"}`),
		step{event: ProviderEvent{Kind: ProviderDone, ResponseID: "resp_2"}},
	)}}
	svc := newTestService(t, provider, Timeouts{})

	prior := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "Who should I start at QB?"},
		{Role: conversation.RoleAssistant, Content: "Start Josh Allen"},
	}
	require.NoError(t, svc.history.Record(context.Background(), "resp_1", prior))

	events := collect(svc, context.Background(), Request{
		UserMessage:        "What about Mahomes?",
		PreviousResponseID: "resp_1",
	})
	assertTerminalExclusivity(t, events)
	require.Equal(t, stream.EventResponseComplete, events[len(events)-1].Type)

	// The provider saw the stored context plus only the new user turn.
	require.Len(t, provider.lastReq.Messages, 3)
	assert.Equal(t, prior[0], provider.lastReq.Messages[0])
	assert.Equal(t, prior[1], provider.lastReq.Messages[1])
	assert.Equal(t, "What about Mahomes?", provider.lastReq.Messages[2].Content)
}

func TestStreamAdviceWebSearchOverride(t *testing.T) {
	provider := &scriptedProvider{stream: &scriptedStream{steps: append(
		deltaSteps(`{"main_advice": "ok"}`),
		step{event: ProviderEvent{Kind: ProviderDone, ResponseID: "resp_x"}},
	)}}
	svc := newTestService(t, provider, Timeouts{})

	disabled := false
	collect(svc, context.Background(), Request{
		Conversation:    []conversation.Turn{{Role: conversation.RoleUser, Content: "latest injury news today"}},
		EnableWebSearch: &disabled,
	})
	assert.False(t, provider.lastReq.EnableWebSearch, "explicit flag wins over policy")

	provider.stream = &scriptedStream{steps: append(
		deltaSteps(`{"main_advice": "ok"}`),
		step{event: ProviderEvent{Kind: ProviderDone, ResponseID: "resp_y"}},
	)}
	collect(svc, context.Background(), userRequest("latest injury news today"))
	assert.True(t, provider.lastReq.EnableWebSearch, "time-sensitive query enables search")
}

func TestAdviceNonStreaming(t *testing.T) {
	provider := &scriptedProvider{stream: &scriptedStream{steps: append(
		deltaSteps(`{"main_advice": "Start Allen", "reasoning": "elite matchup"}`),
		step{event: ProviderEvent{Kind: ProviderDone, ResponseID: "resp_ns", Model: "gpt-4.1"}},
	)}}
	svc := newTestService(t, provider, Timeouts{})

	resp, err := svc.Advice(context.Background(), userRequest("Start Allen?"))
	require.NoError(t, err)
	assert.Equal(t, "Start Allen", resp.Reply)
	assert.Equal(t, "resp_ns", resp.ResponseID)
	assert.Equal(t, "elite matchup", resp.Advice.Reasoning)
}

func TestAdviceNonStreamingError(t *testing.T) {
	svc := newTestService(t, &scriptedProvider{openErr: errors.New("boom")}, Timeouts{})
	_, err := svc.Advice(context.Background(), userRequest("anything"))
	require.Error(t, err)
	assert.Equal(t, msgUnavailable, err.Error())
}
