// Package streamclient implements the client half of the canonical event
// protocol: an I/O-independent SSE frame parser and the UI-facing consumer
// state machine. Platform clients supply transport and rendering; the
// protocol semantics live here once.
package streamclient

import (
	"bufio"
	"io"
	"strings"

	"github.com/draftwise/draftwise/internal/stream"
)

// FrameParser assembles canonical events from SSE lines. Feed it lines
// (without their trailing newline); it returns an event each time a frame's
// blank-line terminator arrives. The parser holds only the current frame's
// fields, never I/O state, so it can be driven from any transport or test.
type FrameParser struct {
	eventType string
	data      []byte
	haveData  bool
}

func NewFrameParser() *FrameParser {
	return &FrameParser{}
}

// FeedLine consumes one line. The returned event is non-nil only when the
// line completed a frame.
func (p *FrameParser) FeedLine(line string) (*stream.Event, error) {
	switch {
	case line == "":
		if p.eventType == "" && !p.haveData {
			return nil, nil
		}
		event, err := stream.DecodeEvent(p.eventType, p.data)
		p.reset()
		if err != nil {
			return nil, err
		}
		return &event, nil

	case strings.HasPrefix(line, "event:"):
		p.eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

	case strings.HasPrefix(line, "data:"):
		chunk := strings.TrimPrefix(line, "data:")
		chunk = strings.TrimPrefix(chunk, " ")
		if p.haveData {
			p.data = append(p.data, '\n')
		}
		p.data = append(p.data, chunk...)
		p.haveData = true

	case strings.HasPrefix(line, ":"):
		// comment line, ignored
	}
	return nil, nil
}

func (p *FrameParser) reset() {
	p.eventType = ""
	p.data = nil
	p.haveData = false
}

// ReadEvents drains an SSE byte stream, invoking handle for each decoded
// event. It stops at end of stream, on a malformed frame, or when handle
// returns an error.
func ReadEvents(r io.Reader, handle func(stream.Event) error) error {
	parser := NewFrameParser()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		event, err := parser.FeedLine(scanner.Text())
		if err != nil {
			return err
		}
		if event == nil {
			continue
		}
		if err := handle(*event); err != nil {
			return err
		}
	}
	return scanner.Err()
}
