package advice

import (
	"context"

	"github.com/draftwise/draftwise/internal/conversation"
)

// ProviderEventKind classifies the events an upstream provider emits.
type ProviderEventKind int

const (
	// ProviderStatus is an informational update, e.g. the model started a
	// web search.
	ProviderStatus ProviderEventKind = iota
	// ProviderDelta carries an incremental fragment of answer text.
	ProviderDelta
	// ProviderDone signals completion and carries the response identifier.
	ProviderDone
)

// ProviderEvent is one unit of the upstream stream, already reduced to the
// small set of shapes the transport handler cares about.
type ProviderEvent struct {
	Kind       ProviderEventKind
	Message    string
	Delta      string
	ResponseID string
	Model      string
}

// ProviderStream yields provider events in arrival order. Recv returns
// io.EOF after the ProviderDone event; any other error is a transport
// failure.
type ProviderStream interface {
	Recv() (ProviderEvent, error)
	Close() error
}

// ProviderRequest parameterises one upstream call. Messages is the fully
// resolved conversation; continuity resolution happens before the provider
// is invoked.
type ProviderRequest struct {
	Model           string
	Instructions    string
	Messages        []conversation.Turn
	EnableWebSearch bool
}

// Provider is the upstream model, consumed as an opaque event source.
type Provider interface {
	Stream(ctx context.Context, req ProviderRequest) (ProviderStream, error)
}
