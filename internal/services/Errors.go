package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ServiceError. The web layer turns each kind into a status code.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindNotFound
	KindInvalidData
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalidData:
		return "invalid_data"
	default:
		return "unknown"
	}
}

// ServiceError is an expected, client-facing failure. Message is safe to return to the caller.
// Anything that is not a ServiceError is an internal failure.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: message, Cause: cause}
}

func NewConflictError(message string, cause error) *ServiceError {
	return &ServiceError{Kind: KindConflict, Message: message, Cause: cause}
}

func NewNotFoundError(message string, cause error) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: message, Cause: cause}
}

func NewInvalidDataError(message string, cause error) *ServiceError {
	return &ServiceError{Kind: KindInvalidData, Message: message, Cause: cause}
}

// AsServiceError extracts the ServiceError from err's chain.
func AsServiceError(err error) (*ServiceError, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}
