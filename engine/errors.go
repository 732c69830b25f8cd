package engine

import (
	"fmt"
	"strings"
)

// LaunchError reports that the engine process could not be started or the
// handshake with it failed.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("browser launch failed: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// UnsupportedOptionError lists launch options the engine would ignore.
type UnsupportedOptionError struct {
	Options []Option
	Reason  string
}

func (e *UnsupportedOptionError) Error() string {
	names := make([]string, 0, len(e.Options))
	for _, o := range e.Options {
		names = append(names, string(o))
	}
	msg := "unsupported launch options: " + strings.Join(names, ", ")
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}
