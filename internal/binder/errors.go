package binder

import (
	"errors"
	"fmt"
)

// ErrEmptyEventName rejects subscriptions without an event name.
var ErrEmptyEventName = errors.New("event name must be a non-empty string")

// InvalidHandlerError reports a subscription whose handler is not callable.
type InvalidHandlerError struct {
	Event string
}

func (e *InvalidHandlerError) Error() string {
	return fmt.Sprintf("event %q: handler is not callable", e.Event)
}
