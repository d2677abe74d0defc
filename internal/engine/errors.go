package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
)

// Error represents a request the engine refused.
//
// Engine errors include:
//   - Precision exhausted: neighbors are too close, the list needs a rebalance
//   - Not found: the item does not exist or was deleted
//   - Invalid argument: malformed move target, index out of range
//   - Invalid state: a session operation in the wrong wizard state
//
// Store failures are not wrapped in Error; they surface as plain wrapped
// errors.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ListID identifies the affected list.
	ListID string

	// ItemID identifies the affected item, when there is one.
	ItemID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodePrecisionExhausted indicates no key fits between two neighbors.
	ErrCodePrecisionExhausted ErrorCode = "PRECISION_EXHAUSTED"

	// ErrCodeNotFound indicates a missing or deleted item.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidArgument indicates a malformed request.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeInvalidState indicates a session used out of order.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ListID != "" && e.ItemID != "" {
		return fmt.Sprintf("%s: %s (list=%s, item=%s)", e.Code, e.Message, e.ListID, e.ItemID)
	}
	if e.ListID != "" {
		return fmt.Sprintf("%s: %s (list=%s)", e.Code, e.Message, e.ListID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsPrecisionExhausted returns true if err reports that no key fits between
// two neighbors. Matches both engine errors and bare key.ErrPrecisionExhausted.
func IsPrecisionExhausted(err error) bool {
	return hasCode(err, ErrCodePrecisionExhausted) || errors.Is(err, key.ErrPrecisionExhausted)
}

// IsNotFound returns true if err reports a missing item.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound) || errors.Is(err, store.ErrNotFound)
}

// IsInvalidArgument returns true if err reports a malformed request.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsInvalidState returns true if err reports a session used out of order.
func IsInvalidState(err error) bool {
	return hasCode(err, ErrCodeInvalidState)
}

// NewPrecisionError creates an Error for a refused placement.
func NewPrecisionError(listID, itemID string, cause error) *Error {
	return &Error{
		Code:    ErrCodePrecisionExhausted,
		Message: "no key fits between the neighbors; rebalance the list",
		ListID:  listID,
		ItemID:  itemID,
		Err:     cause,
	}
}

// NewNotFoundError creates an Error for a missing item.
func NewNotFoundError(listID, itemID string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "item not found",
		ListID:  listID,
		ItemID:  itemID,
		Err:     store.ErrNotFound,
	}
}

// NewInvalidArgumentError creates an Error for a malformed request.
func NewInvalidArgumentError(listID, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
		ListID:  listID,
	}
}

func newStateError(listID string, want, got State) *Error {
	return &Error{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("session is %s, want %s", got, want),
		ListID:  listID,
	}
}

// classify maps store and key errors onto engine errors. Other errors pass
// through unchanged.
func classify(err error, listID, itemID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, key.ErrPrecisionExhausted):
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return NewPrecisionError(listID, itemID, err)
	case errors.Is(err, store.ErrNotFound):
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return NewNotFoundError(listID, itemID)
	default:
		return err
	}
}
