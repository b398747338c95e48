// Package apperror defines the typed error taxonomy shared by the ticketing
// services and the command boundary.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindBusinessRule   Kind = "business_rule"
	KindConflict       Kind = "conflict"
	KindDatabase       Kind = "database"
	KindConfiguration  Kind = "configuration"
	KindInternal       Kind = "internal"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeDatabase        Code = "DATABASE_ERROR"
	CodeConfiguration   Code = "CONFIGURATION_ERROR"
	CodeInternal        Code = "INTERNAL"

	CodeEventNotPublished     Code = "EVENT_NOT_PUBLISHED"
	CodeEventAlreadyStarted   Code = "EVENT_ALREADY_STARTED"
	CodeEventNotStarted       Code = "EVENT_NOT_STARTED"
	CodeEventEnded            Code = "EVENT_ENDED"
	CodeEventCancelled        Code = "EVENT_CANCELLED"
	CodeCapacityExceeded      Code = "CAPACITY_EXCEEDED"
	CodeTicketsSoldOut        Code = "TICKETS_SOLD_OUT"
	CodeInvalidQRCode         Code = "INVALID_QR_CODE"
	CodeInvalidSignature      Code = "INVALID_SIGNATURE"
	CodeWrongEvent            Code = "WRONG_EVENT"
	CodeAlreadyCheckedIn      Code = "ALREADY_CHECKED_IN"
	CodeAlreadyCancelled      Code = "ALREADY_CANCELLED"
	CodeRegistrationCancelled Code = "REGISTRATION_CANCELLED"

	CodeDuplicateRegistration Code = "DUPLICATE_REGISTRATION"
)

// Error is a classified failure. Message is safe to show to callers;
// Cause carries the underlying error for logs only.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so callers can compare against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

func Unauthorized(message string) *Error {
	return New(KindAuthorization, CodeUnauthorized, message)
}

func Unauthenticated(message string) *Error {
	return New(KindAuthentication, CodeUnauthenticated, message)
}

func BusinessRule(code Code, message string) *Error {
	return New(KindBusinessRule, code, message)
}

func Conflict(code Code, message string) *Error {
	return New(KindConflict, code, message)
}

// Database wraps a store failure. The message stays generic so nothing from
// the driver reaches the caller.
func Database(op string, cause error) *Error {
	return &Error{
		Kind:    KindDatabase,
		Code:    CodeDatabase,
		Message: op + " failed",
		Cause:   cause,
	}
}

func Configuration(message string) *Error {
	return New(KindConfiguration, CodeConfiguration, message)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Expected reports whether err is a normal outcome that should not be
// logged as an incident.
func Expected(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindAuthentication, KindAuthorization,
		KindNotFound, KindBusinessRule, KindConflict:
		return true
	default:
		return false
	}
}
