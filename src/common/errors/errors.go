// Package errors provides the structured error type shared by the dbmeta
// CLI, migration runner and HTTP API. Every error carries a domain, a code
// unique within that domain and the HTTP status it maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error within a domain
type Code string

// Domain groups related errors (e.g. "migration", "catalog")
type Domain string

const (
	DomainMigration  Domain = "migration"
	DomainSchema     Domain = "schema"
	DomainCatalog    Domain = "catalog"
	DomainDatabase   Domain = "database"
	DomainValidation Domain = "validation"
	DomainInternal   Domain = "internal"
)

// Error is a structured error with domain, code and HTTP status
type Error struct {
	Domain     Domain `json:"domain"`
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target has the same domain and code. Messages and
// causes are ignored, so a sentinel matches any of its derived copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Domain == t.Domain && e.Code == t.Code
}

// WithCause returns a copy of e wrapping cause
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// WithMessage returns a copy of e with a different message
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// WithMessagef returns a copy of e with a formatted message
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// New creates an Error
func New(domain Domain, code Code, httpStatus int, message string) *Error {
	return &Error{
		Domain:     domain,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap creates an Error around err
func Wrap(err error, domain Domain, code Code, httpStatus int, message string) *Error {
	return &Error{
		Domain:     domain,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		cause:      err,
	}
}

// GetHTTPStatus returns the HTTP status of the first *Error in err's chain,
// or 500 when there is none.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetCode returns the code of the first *Error in err's chain
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetDomain returns the domain of the first *Error in err's chain
func GetDomain(err error) Domain {
	var e *Error
	if errors.As(err, &e) {
		return e.Domain
	}
	return ""
}

// Is delegates to the standard library errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As delegates to the standard library errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
