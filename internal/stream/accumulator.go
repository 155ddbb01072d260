package stream

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/draftwise/draftwise/internal/schema"
)

// AccumulatorState tracks where the accumulator is in its lifecycle.
type AccumulatorState int

const (
	StateEmpty AccumulatorState = iota
	StateAccumulating
	StateParsed
	StateValidated
	StateFallbackProduced
)

func (s AccumulatorState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateParsed:
		return "parsed"
	case StateValidated:
		return "validated"
	case StateFallbackProduced:
		return "fallback_produced"
	default:
		return "unknown"
	}
}

// ParseStatus is the three-state outcome of a mid-stream parse attempt.
// Incomplete is the expected result for most of a stream's lifetime and is
// never treated as an error.
type ParseStatus int

const (
	ParseIncomplete ParseStatus = iota
	ParseOK
	ParseFailed
)

// ParseResult carries the parse status and, on ParseOK, the decoded candidate.
type ParseResult struct {
	Status    ParseStatus
	Candidate map[string]any
}

// Accumulator buffers streamed text fragments whose final form is one JSON
// object, exposing the running plain text for display along the way. It is
// exclusively owned by one request flow; no locking.
type Accumulator struct {
	buf       strings.Builder
	state     AccumulatorState
	candidate map[string]any
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{state: StateEmpty}
}

// Append concatenates a fragment onto the buffer.
func (a *Accumulator) Append(fragment string) {
	if fragment == "" {
		return
	}
	a.buf.WriteString(fragment)
	if a.state == StateEmpty {
		a.state = StateAccumulating
	}
}

// Text returns the accumulated raw text, suitable for incremental display
// before the structured payload exists.
func (a *Accumulator) Text() string {
	return a.buf.String()
}

// State returns the current lifecycle state.
func (a *Accumulator) State() AccumulatorState {
	return a.state
}

// TryParse attempts a tolerant parse of the current buffer. A buffer that is
// merely a prefix of valid JSON reports ParseIncomplete; content that can
// never become a JSON object reports ParseFailed. Neither is an error.
func (a *Accumulator) TryParse() ParseResult {
	text := strings.TrimSpace(a.buf.String())
	if text == "" {
		return ParseResult{Status: ParseIncomplete}
	}
	if !strings.HasPrefix(text, "{") {
		return ParseResult{Status: ParseFailed}
	}

	var candidate map[string]any
	err := json.Unmarshal([]byte(text), &candidate)
	if err == nil {
		a.candidate = candidate
		if a.state == StateAccumulating {
			a.state = StateParsed
		}
		return ParseResult{Status: ParseOK, Candidate: candidate}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) && int(syntaxErr.Offset) >= len(text) {
		// Ran off the end of the buffer: the stream just has not caught up.
		return ParseResult{Status: ParseIncomplete}
	}
	return ParseResult{Status: ParseFailed}
}

// Finalize is called once the upstream signals completion. It always returns
// a schema-valid StructuredAdvice: the parsed and validated payload when
// possible, otherwise a synthesised fallback built from the best text
// available. It never returns an error, even on a zero-byte stream.
func (a *Accumulator) Finalize() schema.StructuredAdvice {
	if result := a.TryParse(); result.Status == ParseOK {
		if validated := schema.Validate(result.Candidate); validated.Valid {
			a.state = StateValidated
			return validated.Advice
		}
	}
	a.state = StateFallbackProduced
	return schema.MakeFallback(a.buf.String())
}
