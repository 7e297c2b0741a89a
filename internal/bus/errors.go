package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTopic is returned when a subscription names the empty topic.
	ErrEmptyTopic = errors.New("bus: topic must not be empty")

	// ErrNilHandler is returned when Subscribe is called without a handler.
	ErrNilHandler = errors.New("bus: handler must not be nil")
)

// HandlerPanicError wraps a value recovered from a panicking handler.
type HandlerPanicError struct {
	Topic string
	Value any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("bus: handler for %q panicked: %v", e.Topic, e.Value)
}

// HandlerError wraps an error returned by a handler with the topic of the
// message being delivered.
type HandlerError struct {
	Topic string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("bus: handler for %q: %v", e.Topic, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
