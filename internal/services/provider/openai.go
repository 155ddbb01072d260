// Package provider implements the upstream model port against the OpenAI
// streaming chat completions API.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	openaiinfra "github.com/draftwise/draftwise/internal/infrastructure/openai"
	"github.com/draftwise/draftwise/internal/services/advice"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

type OpenAI struct {
	service *openaiinfra.Service
}

func NewOpenAI(service *openaiinfra.Service) (*OpenAI, error) {
	if service == nil {
		return nil, fmt.Errorf("OpenAI service is required")
	}
	return &OpenAI{service: service}, nil
}

func (p *OpenAI) Stream(ctx context.Context, req advice.ProviderRequest) (advice.ProviderStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.Instructions,
	})
	for _, turn := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if req.EnableWebSearch {
		openaiReq.Tools = []openai.Tool{{Type: openai.ToolType("web_search")}}
	}

	log.Debug().
		Str("model", req.Model).
		Int("message_count", len(messages)).
		Bool("web_search", req.EnableWebSearch).
		Msg("Opening upstream completion stream")

	stream, err := p.service.GetClient().CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("create completion stream: %w", err)
	}
	return &chatStream{stream: stream, model: req.Model}, nil
}

// chatStream adapts the OpenAI stream to the provider port: tool-call deltas
// become a single status event, text deltas pass through, and EOF becomes an
// explicit done event carrying the response identifier.
type chatStream struct {
	stream       *openai.ChatCompletionStream
	responseID   string
	model        string
	toolNotified bool
	done         bool
}

func (cs *chatStream) Recv() (advice.ProviderEvent, error) {
	if cs.done {
		return advice.ProviderEvent{}, io.EOF
	}

	for {
		resp, err := cs.stream.Recv()
		if errors.Is(err, io.EOF) {
			cs.done = true
			return advice.ProviderEvent{
				Kind:       advice.ProviderDone,
				ResponseID: cs.responseID,
				Model:      cs.model,
			}, nil
		}
		if err != nil {
			return advice.ProviderEvent{}, err
		}

		if resp.ID != "" {
			cs.responseID = resp.ID
		}
		if resp.Model != "" {
			cs.model = resp.Model
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		if len(delta.ToolCalls) > 0 {
			if cs.toolNotified {
				continue
			}
			cs.toolNotified = true
			return advice.ProviderEvent{
				Kind:    advice.ProviderStatus,
				Message: "Searching the web for current information",
			}, nil
		}
		if delta.Content != "" {
			return advice.ProviderEvent{Kind: advice.ProviderDelta, Delta: delta.Content}, nil
		}
	}
}

func (cs *chatStream) Close() error {
	return cs.stream.Close()
}
