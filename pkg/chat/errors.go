package chat

import (
	"errors"
	"fmt"
)

// DefaultFailureMessage is reported when a failed response carries no error
// description of its own.
const DefaultFailureMessage = "Failed to get response"

var (
	// ErrNoResponseBody is returned when the chat endpoint answers with a
	// success status but no body to stream.
	ErrNoResponseBody = errors.New("no response body")

	// ErrSendInProgress is returned when Send is called while a previous
	// send is still streaming.
	ErrSendInProgress = errors.New("a message is already being answered")

	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSessionClosed is returned by Send after Close.
	ErrSessionClosed = errors.New("chat session closed")
)

// StatusError is a non-success HTTP status received before streaming began.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// StreamError is a transport failure after streaming began. Partial holds
// the assistant text that had already been rendered.
type StreamError struct {
	Err     error
	Partial string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("reading chat stream: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsSetupFailure reports whether err happened before any bytes were streamed.
func IsSetupFailure(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) || errors.Is(err, ErrNoResponseBody)
}
