package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call against the service.
type Kind string

const (
	// KindTransport covers connection failures, timeouts and unreadable bodies.
	KindTransport Kind = "transport"
	// KindStatus means the service answered with an unexpected HTTP status.
	KindStatus Kind = "status"
	// KindContract means the response did not match the expected schema.
	KindContract Kind = "contract"
)

// Error is returned by every Client method that fails.
type Error struct {
	Kind       Kind
	Op         string // e.g. "login", "assign company test"
	StatusCode int    // set for KindStatus
	Body       string // response body, trimmed, for KindStatus
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Body != "" {
			return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case KindContract:
		return fmt.Sprintf("%s: contract violation: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func contractErr(op, format string, args ...any) *Error {
	return &Error{Kind: KindContract, Op: op, Err: fmt.Errorf(format, args...)}
}
