// Package shared holds the error taxonomy used across the store, the
// authentication service and the application services.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds, matched with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failure")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrStorage            = errors.New("storage failure")
	ErrNestedUnitOfWork   = errors.New("nested unit of work")
)

// DomainError carries a user-facing message next to the error kind.
type DomainError struct {
	Domain  string // e.g. "group", "auth", "store"
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func NewError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// NotFound builds a not-found error for the given entity, e.g. NotFound("group", "Get", "group", 4).
func NotFound(domain, op, entity string, id int64) *DomainError {
	return NewError(domain, op, ErrNotFound, fmt.Sprintf("%s %d not found", entity, id))
}

// Invalid builds a validation failure with a formatted reason.
func Invalid(domain, op, format string, args ...any) *DomainError {
	return NewError(domain, op, ErrValidation, fmt.Sprintf(format, args...))
}

// Storage wraps a driver error as a storage failure.
func Storage(op string, err error) *DomainError {
	return WrapError("store", op, ErrStorage, "storage failure", err)
}

// UserMessage returns the message meant for the person in front of the
// screen. Storage failures never leak driver details.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrStorage) {
		return "the records store is unavailable, try again later"
	}
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsStorage(err error) bool    { return errors.Is(err, ErrStorage) }
