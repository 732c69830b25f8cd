package session

import "errors"

var (
	// ErrNotLaunched is returned by operations that need a launched session.
	ErrNotLaunched = errors.New("browser session not launched")
	// ErrAlreadyLaunched rejects a second Launch on the same Manager.
	ErrAlreadyLaunched = errors.New("browser session already launched")
	// ErrClosed rejects Launch on a Manager that was closed.
	ErrClosed = errors.New("browser session closed")
)
