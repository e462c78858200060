package store

import "errors"

var (
	// ErrNotFound is returned when a conversation does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("conversation not found")
	// ErrForbidden is returned when the caller does not own the
	// conversation it is acting on.
	ErrForbidden = errors.New("not the conversation owner")
	// ErrEmptyMessage is returned when message content is blank.
	ErrEmptyMessage = errors.New("message content is required")
)
