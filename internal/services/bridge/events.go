package bridge

import "context"

// Message and event type labels.
const (
	TypeRequest       = "http.request"
	TypeResponseStart = "http.response.start"
	TypeResponseBody  = "http.response.body"
)

// RequestMessage is returned by Receive.
type RequestMessage struct {
	Type     string
	Body     []byte
	MoreBody bool
}

// Event is a response event sent by the application.
type Event interface {
	EventType() string
}

// ResponseStart sets the status and headers of the response.
type ResponseStart struct {
	Status  int
	Headers []RawHeader
}

// EventType implements Event.
func (ResponseStart) EventType() string { return TypeResponseStart }

// ResponseBody appends bytes to the response body.
type ResponseBody struct {
	Body []byte
}

// EventType implements Event.
func (ResponseBody) EventType() string { return TypeResponseBody }

// Receive hands the request body to the application.
type Receive func(ctx context.Context) (RequestMessage, error)

// Send hands a response event to the bridge.
type Send func(ctx context.Context, event Event) error

// Application is the downstream side of the bridge. Call returns once every
// response event has been sent.
type Application interface {
	Call(ctx context.Context, scope Scope, receive Receive, send Send) error
}

// ApplicationFunc adapts a function to Application.
type ApplicationFunc func(ctx context.Context, scope Scope, receive Receive, send Send) error

// Call implements Application.
func (f ApplicationFunc) Call(ctx context.Context, scope Scope, receive Receive, send Send) error {
	return f(ctx, scope, receive, send)
}
