package chat

import "errors"

var (
	// ErrExternalService wraps every failure of the language-model call.
	ErrExternalService = errors.New("chat: external service failure")

	// ErrInvalidContext is returned for an unknown context type or a payload
	// that does not match its type.
	ErrInvalidContext = errors.New("chat: invalid context")

	// ErrEmptyMessage is returned when the message text is blank.
	ErrEmptyMessage = errors.New("chat: message is empty")
)
