package errors

import (
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeStoreUnavailable ErrorType = "STORE_UNAVAILABLE"
	ErrorTypeConfiguration    ErrorType = "CONFIGURATION"
	ErrorTypeProvider         ErrorType = "PROVIDER"
	ErrorTypeEmptyResponse    ErrorType = "EMPTY_RESPONSE"
	ErrorTypeGeneration       ErrorType = "GENERATION_FAILED"
	ErrorTypeInternal         ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	// Status holds the upstream HTTP status for provider errors, 0 otherwise.
	Status int
	Err    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewStoreUnavailable creates a store transport/configuration error
func NewStoreUnavailable(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeStoreUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewConfiguration creates a missing-configuration error
func NewConfiguration(message string) error {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// NewProvider creates an error for a non-success provider response.
// status is the HTTP status reported by the provider.
func NewProvider(message string, status int) error {
	return &AppError{
		Type:    ErrorTypeProvider,
		Message: message,
		Status:  status,
	}
}

// NewEmptyResponse creates an error for a provider response with no usable text
func NewEmptyResponse(message string) error {
	return &AppError{
		Type:    ErrorTypeEmptyResponse,
		Message: message,
	}
}

// NewGeneration creates a story generation failure
func NewGeneration(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeGeneration,
		Message: message,
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type and status
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Status:  appErr.Status,
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeValidation
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeNotFound
}

// IsStoreUnavailable checks if an error is a store availability error
func IsStoreUnavailable(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeStoreUnavailable
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeConfiguration
}

// IsProvider checks if an error is a provider error
func IsProvider(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeProvider
}

// IsEmptyResponse checks if an error is an empty provider response
func IsEmptyResponse(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeEmptyResponse
}

// IsGeneration checks if an error is a generation failure
func IsGeneration(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeGeneration
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeInternal
}

// StatusOf returns the upstream HTTP status carried by a provider error,
// or 0 when the error carries none.
func StatusOf(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Status
	}
	return 0
}

// MessageOf returns the human-readable message of an AppError, or the
// plain error text for any other error.
func MessageOf(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
