package assistant

import (
	"ledgerchat/internal/types"
)

// Flow names a user-facing request type.
type Flow string

const (
	FlowChat    Flow = "chat"
	FlowMindMap Flow = "mind_map"
)

// EventKind is the lifecycle step of a request: started, then exactly one of
// result or failure.
type EventKind int

const (
	EventRequestStarted EventKind = iota
	EventResultReceived
	EventRequestFailed
)

func (k EventKind) String() string {
	switch k {
	case EventRequestStarted:
		return "request_started"
	case EventResultReceived:
		return "result_received"
	case EventRequestFailed:
		return "request_failed"
	default:
		return "unknown"
	}
}

// Event is emitted to observers. RequestID ties the three lifecycle events together
// and equals the ID of the placeholder message, so consumers can replace it in place.
type Event struct {
	Kind      EventKind
	Flow      Flow
	RequestID string

	// Query is the user's text, set on chat start.
	Query string

	// Message is the placeholder on start, the model answer on result
	// and the system-attributed failure notice on failure.
	Message types.ChatMessage

	// MindMap is set on a mind map result.
	MindMap *types.MindMapNode

	// Err is set on failure.
	Err error
}

// Observer receives request lifecycle events. OnEvent is called synchronously
// on the requesting goroutine and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}
