package services

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure so the transport layer can map it to a
// status code without parsing messages.
type Kind string

const (
	KindInvalidArgument  Kind = "invalid_argument"
	KindNotFound         Kind = "not_found"
	KindUnauthorized     Kind = "unauthorized"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindTableFull        Kind = "table_full"
	KindConflict         Kind = "conflict"
	KindNothingToPay     Kind = "nothing_to_pay"
	KindPendingBalance   Kind = "pending_balance"
	KindInternal         Kind = "internal"
)

// Error is a business-rule failure detected inside the engine. Store-level
// read/write conflicts never surface as Error; they are retried inside
// RunTransactional.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an engine error with a formatted message.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, returning KindInternal for anything
// that is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// wrapInternal passes engine errors through untouched and wraps raw store
// errors as internal, so callers never see gorm details.
func wrapInternal(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "storage operation failed", Err: err}
}
