package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Common application errors
var (
	ErrInvalidCredentials = NewUnauthenticatedError("invalid email or password")
	ErrNotAuthenticated   = NewUnauthenticatedError("authentication required")
)

// GRPCStatuser interface for errors that can provide gRPC status
type GRPCStatuser interface {
	GRPCStatus() *status.Status
}

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// GRPCStatus returns the gRPC status for this error
func (e *ValidationError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// GRPCStatus returns the gRPC status for this error
func (e *NotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// AlreadyExistsError represents a resource already exists error
type AlreadyExistsError struct {
	Resource string
	Message  string
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(resource, message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// GRPCStatus returns the gRPC status for this error
func (e *AlreadyExistsError) GRPCStatus() *status.Status {
	return status.New(codes.AlreadyExists, e.Error())
}

// UnauthenticatedError represents a missing or rejected identity
type UnauthenticatedError struct {
	Message string
}

// NewUnauthenticatedError creates a new unauthenticated error
func NewUnauthenticatedError(message string) *UnauthenticatedError {
	return &UnauthenticatedError{Message: message}
}

// Error implements the error interface
func (e *UnauthenticatedError) Error() string {
	return e.Message
}

// GRPCStatus returns the gRPC status for this error
func (e *UnauthenticatedError) GRPCStatus() *status.Status {
	return status.New(codes.Unauthenticated, e.Message)
}

// InternalError represents an internal server error with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// GRPCStatus returns the gRPC status for this error.
// The wrapped cause is not exposed to callers.
func (e *InternalError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, e.Message)
}

// Code returns the RPC error code name for err, e.g. "NOT_FOUND".
// Errors without a known type map to "INTERNAL_SERVER_ERROR".
func Code(err error) string {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		existsErr     *AlreadyExistsError
		unauthErr     *UnauthenticatedError
	)

	switch {
	case errors.As(err, &validationErr):
		return "BAD_REQUEST"
	case errors.As(err, &notFoundErr):
		return "NOT_FOUND"
	case errors.As(err, &existsErr):
		return "CONFLICT"
	case errors.As(err, &unauthErr):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// HTTPStatus maps err to the HTTP status code used by the REST and RPC transports.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "BAD_REQUEST":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "CONFLICT":
		return http.StatusConflict
	case "UNAUTHORIZED":
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to a caller.
// Internal details are replaced by a generic message.
func PublicMessage(err error) string {
	if Code(err) == "INTERNAL_SERVER_ERROR" {
		return "An internal error occurred"
	}
	return err.Error()
}
