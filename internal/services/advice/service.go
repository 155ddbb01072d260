// Package advice bridges an upstream model provider to the canonical event
// protocol: it opens one upstream stream per request, re-emits events in
// arrival order, accumulates the answer text, and guarantees a well-formed
// terminal event on every path.
package advice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/draftwise/draftwise/internal/conversation"
	"github.com/draftwise/draftwise/internal/schema"
	"github.com/draftwise/draftwise/internal/services/confidence"
	"github.com/draftwise/draftwise/internal/services/history"
	"github.com/draftwise/draftwise/internal/services/prompt"
	"github.com/draftwise/draftwise/internal/services/searchpolicy"
	"github.com/draftwise/draftwise/internal/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	statusProcessing = "Generating advice"
	statusCode       = 102

	msgUnavailable = "The advice service is temporarily unavailable. Please try again."
	msgUpstream    = "Something went wrong while generating advice. Please try again."
	msgTimeout     = "Timed out waiting for the model to respond. Please retry."
	msgNoMessage   = "Request contains no user message."
)

// Request is the decoded client request for one advice stream. When
// PreviousResponseID is set it is authoritative and Conversation is an
// ignorable fallback.
type Request struct {
	Conversation       []conversation.Turn
	UserMessage        string
	PreviousResponseID string
	EnableWebSearch    *bool
	Model              string
}

// Response is the settled result of a non-streaming request.
type Response struct {
	Reply      string                  `json:"reply"`
	Advice     schema.StructuredAdvice `json:"advice"`
	ResponseID string                  `json:"response_id"`
	Model      string                  `json:"model,omitempty"`
}

// Timeouts bound the two waits that could otherwise hang a stream.
type Timeouts struct {
	FirstByte time.Duration
	Idle      time.Duration
}

type Service struct {
	provider     Provider
	history      *history.Service
	prompts      *prompt.Service
	policy       *searchpolicy.Service
	confidence   *confidence.Service
	defaultModel string
	timeouts     Timeouts
}

// NewService wires the transport handler. The confidence service may be nil;
// logging is then skipped.
func NewService(p Provider, hist *history.Service, prompts *prompt.Service, policy *searchpolicy.Service, conf *confidence.Service, defaultModel string, timeouts Timeouts) (*Service, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if hist == nil {
		return nil, fmt.Errorf("history service is required")
	}
	return &Service{
		provider:     p,
		history:      hist,
		prompts:      prompts,
		policy:       policy,
		confidence:   conf,
		defaultModel: defaultModel,
		timeouts:     timeouts,
	}, nil
}

type recvResult struct {
	event ProviderEvent
	err   error
}

// StreamAdvice runs one request end to end, pushing canonical events into
// sink in arrival order. The sequence always ends with exactly one terminal
// event unless the context is cancelled, in which case processing simply
// stops. A sink error aborts the stream (the client is gone).
func (s *Service) StreamAdvice(ctx context.Context, req Request, sink func(stream.Event) error) {
	em := stream.NewEmitter(sink)

	turns, userMessage := s.resolveConversation(ctx, req)
	if userMessage == "" {
		s.emit(em, stream.NewError(msgNoMessage))
		return
	}

	webSearch := s.decideWebSearch(req, userMessage)
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	if err := s.emit(em, stream.NewStatusUpdate(statusProcessing, statusCode)); err != nil {
		return
	}

	instructions := ""
	if s.prompts != nil {
		instructions = s.prompts.SystemPrompt()
	}

	ps, err := s.provider.Stream(ctx, ProviderRequest{
		Model:           model,
		Instructions:    instructions,
		Messages:        turns,
		EnableWebSearch: webSearch,
	})
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("Failed to open upstream stream")
		s.emit(em, stream.NewError(msgUnavailable))
		return
	}
	defer ps.Close()

	acc := stream.NewAccumulator()

	done := make(chan struct{})
	defer close(done)

	events := make(chan recvResult)
	go func() {
		for {
			event, recvErr := ps.Recv()
			select {
			case events <- recvResult{event: event, err: recvErr}:
			case <-done:
				return
			}
			if recvErr != nil {
				return
			}
		}
	}()

	timer := time.NewTimer(s.timeouts.FirstByte)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnect is a cancellation signal, not an error: stop
			// consuming the upstream and emit nothing further.
			log.Debug().Msg("Request cancelled, abandoning upstream stream")
			return

		case <-timer.C:
			log.Warn().Dur("first_byte", s.timeouts.FirstByte).Dur("idle", s.timeouts.Idle).
				Msg("Upstream stream timed out")
			s.emit(em, stream.NewError(msgTimeout))
			return

		case res := <-events:
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					// The stream ended without a completion event. Salvage
					// what was accumulated rather than discarding it.
					s.complete(ctx, em, acc, turns, userMessage, "", model, webSearch)
					return
				}
				log.Error().Err(res.err).Msg("Upstream provider error")
				s.emit(em, stream.NewError(msgUpstream))
				return
			}

			switch res.event.Kind {
			case ProviderStatus:
				if err := s.emit(em, stream.NewStatusUpdate(res.event.Message, statusCode)); err != nil {
					return
				}
			case ProviderDelta:
				acc.Append(res.event.Delta)
				if err := s.emit(em, stream.NewTextDelta(res.event.Delta)); err != nil {
					return
				}
			case ProviderDone:
				upstreamModel := res.event.Model
				if upstreamModel == "" {
					upstreamModel = model
				}
				s.complete(ctx, em, acc, turns, userMessage, res.event.ResponseID, upstreamModel, webSearch)
				return
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.timeouts.Idle)
		}
	}
}

// Advice runs the pipeline without streaming and returns the settled result.
func (s *Service) Advice(ctx context.Context, req Request) (Response, error) {
	var (
		final  *stream.ResponseComplete
		errMsg string
	)
	s.StreamAdvice(ctx, req, func(e stream.Event) error {
		switch e.Type {
		case stream.EventResponseComplete:
			final = e.Complete
		case stream.EventError:
			errMsg = e.Error.Message
		}
		return nil
	})

	if final == nil {
		if errMsg == "" {
			errMsg = msgUpstream
		}
		return Response{}, errors.New(errMsg)
	}
	return Response{
		Reply:      final.FinalPayload.MainAdvice,
		Advice:     final.FinalPayload,
		ResponseID: final.ResponseID,
		Model:      final.FinalPayload.ModelIdentifier,
	}, nil
}

// complete finalizes the accumulated buffer (falling back when validation
// fails), records continuity state, and emits the single terminal success
// event. Validation failure never surfaces to the client as an error.
func (s *Service) complete(ctx context.Context, em *stream.Emitter, acc *stream.Accumulator, turns []conversation.Turn, userMessage, responseID, model string, webSearch bool) {
	payload := acc.Finalize()
	if payload.ModelIdentifier == "" {
		payload.ModelIdentifier = model
	}
	if responseID == "" {
		responseID = "resp_" + uuid.NewString()
	}

	recorded := append(append([]conversation.Turn{}, turns...), conversation.Turn{
		Role:    conversation.RoleAssistant,
		Content: payload.MainAdvice,
	})
	if err := s.history.Record(ctx, responseID, recorded); err != nil {
		log.Warn().Err(err).Str("response_id", responseID).Msg("Failed to record conversation history")
	}

	if s.confidence != nil {
		if _, err := s.confidence.LogResponse(ctx, payload, userMessage, responseID, webSearch); err != nil {
			log.Warn().Err(err).Str("response_id", responseID).Msg("Failed to log confidence entry")
		}
	}

	log.Info().
		Str("response_id", responseID).
		Str("model", payload.ModelIdentifier).
		Str("accumulator_state", acc.State().String()).
		Msg("Advice stream completed")

	s.emit(em, stream.NewResponseComplete(payload, responseID))
}

func (s *Service) emit(em *stream.Emitter, e stream.Event) error {
	if err := em.Emit(e); err != nil {
		if !errors.Is(err, stream.ErrTerminated) {
			log.Debug().Err(err).Msg("Client write failed, aborting stream")
		}
		return err
	}
	return nil
}

// resolveConversation turns the request into a full message history plus the
// effective user message. With a previous response id the stored context is
// loaded and only the new user turn is appended; otherwise the supplied
// conversation is used as-is.
func (s *Service) resolveConversation(ctx context.Context, req Request) ([]conversation.Turn, string) {
	userMessage := req.UserMessage
	if userMessage == "" {
		for i := len(req.Conversation) - 1; i >= 0; i-- {
			if req.Conversation[i].Role == conversation.RoleUser {
				userMessage = req.Conversation[i].Content
				break
			}
		}
	}
	if s.policy != nil {
		userMessage = s.policy.StripBypass(userMessage)
	}
	if userMessage == "" {
		return nil, ""
	}

	if req.PreviousResponseID != "" {
		prior := s.history.Resolve(ctx, req.PreviousResponseID)
		turns := append(append([]conversation.Turn{}, prior...), conversation.Turn{
			Role:    conversation.RoleUser,
			Content: userMessage,
		})
		return turns, userMessage
	}

	turns := append([]conversation.Turn{}, req.Conversation...)
	if len(turns) == 0 || turns[len(turns)-1].Role != conversation.RoleUser {
		turns = append(turns, conversation.Turn{Role: conversation.RoleUser, Content: userMessage})
	} else if s.policy != nil {
		turns[len(turns)-1].Content = userMessage
	}
	return turns, userMessage
}

// decideWebSearch honours an explicit request flag and otherwise applies the
// systematic search policy to the user message.
func (s *Service) decideWebSearch(req Request, userMessage string) bool {
	if req.EnableWebSearch != nil {
		return *req.EnableWebSearch
	}
	if s.policy == nil {
		return true
	}
	decision, reason := s.policy.Decide(userMessage)
	log.Debug().Str("decision", string(decision)).Str("reason", reason).Msg("Web search policy decision")
	return decision == searchpolicy.DecisionMandatory
}
