package client

import "net/http"

// EventKind tags the concrete variant of an Event.
type EventKind int

const (
	// EventPreRequest fires before every outgoing request.
	EventPreRequest EventKind = iota + 1
)

// Event is the tagged union of client events. Consumers match on the
// concrete type:
//
//	switch e := ev.(type) {
//	case *PreRequestEvent:
//	    e.Headers.Set("X-Trace-ID", traceID)
//	}
type Event interface {
	Kind() EventKind
}

// PreRequestEvent is dispatched before an outgoing request is executed.
// Listeners may inject headers; mutations to Headers are applied to the
// request. Method and URL are informational.
type PreRequestEvent struct {
	Method  string
	URL     string
	Headers http.Header
}

// Kind returns EventPreRequest.
func (*PreRequestEvent) Kind() EventKind { return EventPreRequest }

// Listener receives client events.
type Listener func(Event)
