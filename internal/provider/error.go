package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures for reporting and retry policy.
type ErrorKind int

const (
	// KindTransport covers network failures and unexpected HTTP statuses.
	KindTransport ErrorKind = iota
	// KindRateLimited means the provider signaled throttling. Transient;
	// retried on the next run, never within the same attempt.
	KindRateLimited
	// KindParse means the response body did not have the expected shape.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate-limited"
	case KindParse:
		return "parse"
	default:
		return "transport"
	}
}

// Error is a classified provider failure. A no-match result is not an Error;
// adapters return an empty candidate slice for that.
type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a classified provider failure.
func NewError(providerName string, kind ErrorKind, err error) *Error {
	return &Error{Provider: providerName, Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to KindTransport for
// unclassified errors (timeouts and context cancellation surface this way).
func KindOf(err error) ErrorKind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return KindTransport
}
