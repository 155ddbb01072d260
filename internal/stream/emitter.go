package stream

import "errors"

// ErrTerminated is returned when an event is emitted after the terminal one.
var ErrTerminated = errors.New("stream already terminated")

// Emitter guards a sink with the terminal-exclusivity invariant: zero or more
// non-terminal events followed by exactly one terminal event, after which
// every further Emit fails. Emitters are owned by a single request flow and
// are not safe for concurrent use.
type Emitter struct {
	sink       func(Event) error
	terminated bool
}

// NewEmitter wraps a sink function, typically a transport write.
func NewEmitter(sink func(Event) error) *Emitter {
	return &Emitter{sink: sink}
}

// Emit forwards the event to the sink. Once a terminal event has been sent,
// all subsequent calls return ErrTerminated without touching the sink.
func (em *Emitter) Emit(e Event) error {
	if em.terminated {
		return ErrTerminated
	}
	if e.Terminal() {
		em.terminated = true
	}
	return em.sink(e)
}

// Terminated reports whether the terminal event has been emitted.
func (em *Emitter) Terminated() bool {
	return em.terminated
}
