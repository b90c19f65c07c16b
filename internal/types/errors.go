package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrMaxRetries    = errors.New("retry budget exhausted")
	ErrEndOfData     = errors.New("end of paginated data")
	ErrDuplicate     = errors.New("duplicate record")
	ErrNotFound      = errors.New("record not found")
	ErrNoThread      = errors.New("no comment thread resolvable")
	ErrEmptyBatch    = errors.New("empty record batch")
	ErrUnknownRegion = errors.New("unknown region")
)

// FetchError wraps errors that occur while fetching a platform surface.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors raised by structurally corrupt input during
// field extraction. Missing-but-well-formed absence is not an error and
// never produces one of these; adapters recover it as a nil field.
type ParseError struct {
	URL  string
	Expr string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (expr=%q): %v", e.URL, e.Expr, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps backend failures behind the storage port.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
