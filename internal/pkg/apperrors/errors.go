package apperrors

import "errors"

// Error kinds surfaced by the enrollment engine. Every failure returned by a
// service wraps exactly one of these so callers can branch with errors.Is.
var (
	ErrResourceNotFound   = errors.New("resource not found")
	ErrConflict           = errors.New("conflict")
	ErrCycleDetected      = errors.New("prerequisite cycle detected")
	ErrResourceExhausted  = errors.New("resource exhausted")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidState       = errors.New("invalid state")
	ErrBadRequest         = errors.New("bad request")
)

// Authentication errors
var (
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrInvalidFormat = errors.New("invalid token format")
)

// Kind is the stable, serializable name of an error kind.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindCycleDetected      Kind = "CYCLE_DETECTED"
	KindResourceExhausted  Kind = "RESOURCE_EXHAUSTED"
	KindFailedPrecondition Kind = "FAILED_PRECONDITION"
	KindForbidden          Kind = "FORBIDDEN"
	KindInvalidState       Kind = "INVALID_STATE"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindInternal           Kind = "INTERNAL"
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindNotFound, ErrResourceNotFound},
	{KindConflict, ErrConflict},
	{KindCycleDetected, ErrCycleDetected},
	{KindResourceExhausted, ErrResourceExhausted},
	{KindFailedPrecondition, ErrFailedPrecondition},
	{KindForbidden, ErrPermissionDenied},
	{KindInvalidState, ErrInvalidState},
	{KindInvalidArgument, ErrBadRequest},
}

// KindOf reports the kind of err, or KindInternal when err wraps none of the
// known sentinels.
func KindOf(err error) Kind {
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindInternal
}

// DetailsOf returns the structured details attached to err, if any.
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) *CustomError {
	return NewCustomError(ErrResourceNotFound, message)
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) *CustomError {
	return NewCustomError(ErrConflict, message)
}

// NewCycleDetectedError creates an error for a prerequisite edge that would close a cycle
func NewCycleDetectedError(message string) *CustomError {
	return NewCustomError(ErrCycleDetected, message)
}

// NewResourceExhaustedError creates an error for a full class offering
func NewResourceExhaustedError(message string) *CustomError {
	return NewCustomError(ErrResourceExhausted, message)
}

// NewFailedPreconditionError creates an error for unmet prerequisites
func NewFailedPreconditionError(message string) *CustomError {
	return NewCustomError(ErrFailedPrecondition, message)
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) *CustomError {
	return NewCustomError(ErrPermissionDenied, message)
}

// NewInvalidStateError creates an error for operations not allowed in the current state
func NewInvalidStateError(message string) *CustomError {
	return NewCustomError(ErrInvalidState, message)
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) *CustomError {
	return NewCustomError(ErrBadRequest, message)
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithDetail adds a single detail entry
func (e *CustomError) WithDetail(key string, value interface{}) *CustomError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
