package bridge

import (
	"errors"
	"fmt"
)

// ErrUnsupportedEvent is matched by every ProtocolError.
var ErrUnsupportedEvent = errors.New("unsupported response event")

// ErrInvalidStatus reports a response-start status outside 100-999.
var ErrInvalidStatus = errors.New("invalid response status")

// ProtocolError reports an event type the bridge does not understand. It is a
// contract violation by the application and fails the request.
type ProtocolError struct {
	EventType string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unsupported response type %q for application", e.EventType)
}

// Is lets errors.Is match ErrUnsupportedEvent.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrUnsupportedEvent
}
