// Package conversation models client-side conversation state and the
// continuity policy built on opaque upstream response identifiers.
package conversation

import "github.com/draftwise/draftwise/internal/schema"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role/content pair in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RequestPayload is the wire request a client sends to start one advice
// stream. Exactly one of Conversation or PreviousResponseID is populated by
// BuildRequest; a server accepts either, treating PreviousResponseID as
// authoritative when both are present.
type RequestPayload struct {
	Conversation       []Turn `json:"conversation,omitempty"`
	UserMessage        string `json:"user_message,omitempty"`
	PreviousResponseID string `json:"previous_response_id,omitempty"`
	EnableWebSearch    *bool  `json:"enable_web_search,omitempty"`
	Model              string `json:"model,omitempty"`
}

// State holds one conversation: its turns and the last response identifier
// issued by the upstream provider. The zero value is an empty conversation.
type State struct {
	Turns          []Turn
	LastResponseID string
}

// BuildRequest shapes the next request. With a recorded response id the
// payload carries only the new user message plus that id, relying on
// upstream-side context; otherwise it carries the full history. BuildRequest
// does not mutate the state.
func (s *State) BuildRequest(userMessage string) RequestPayload {
	if s.LastResponseID != "" {
		return RequestPayload{
			UserMessage:        userMessage,
			PreviousResponseID: s.LastResponseID,
		}
	}
	history := make([]Turn, 0, len(s.Turns)+1)
	history = append(history, s.Turns...)
	history = append(history, Turn{Role: RoleUser, Content: userMessage})
	return RequestPayload{Conversation: history}
}

// RecordUserTurn appends the user's message to the transcript.
func (s *State) RecordUserTurn(content string) {
	s.Turns = append(s.Turns, Turn{Role: RoleUser, Content: content})
}

// OnTerminalSuccess records the assistant turn and overwrites the response
// identifier. Continuity only ever advances here.
func (s *State) OnTerminalSuccess(advice schema.StructuredAdvice, responseID string) {
	s.Turns = append(s.Turns, Turn{Role: RoleAssistant, Content: advice.MainAdvice})
	s.LastResponseID = responseID
}

// OnTerminalError leaves LastResponseID untouched so the next request still
// attempts continuity from the prior successful turn.
func (s *State) OnTerminalError() {}

// Reset clears the transcript and the response identifier. Used for an
// explicit "new conversation" action.
func (s *State) Reset() {
	s.Turns = nil
	s.LastResponseID = ""
}
