package source

import (
	"errors"
	"fmt"
)

// UnreachableError indicates the dataset source could not be fetched: a
// transport failure, a timeout, a non-2xx response, or an unreadable file.
type UnreachableError struct {
	Location   string
	StatusCode int
	Err        error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "source unreachable"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("source unreachable at %s: status %d: %v", e.Location, e.StatusCode, e.Err)
	}
	if e.Location != "" {
		return fmt.Sprintf("source unreachable at %s: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("source unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// IsUnreachable reports whether err (or anything it wraps) is an UnreachableError.
func IsUnreachable(err error) bool {
	var ue *UnreachableError
	return errors.As(err, &ue)
}
