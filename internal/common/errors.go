package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used with errors.Is across the sync pipeline.
var (
	// ErrNotFound indicates a local or remote file does not exist
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied indicates access permission issues
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNetworkFailure indicates the remote side could not be reached
	ErrNetworkFailure = errors.New("network failure")
	// ErrConflict indicates the remote service rejected a duplicate
	ErrConflict = errors.New("conflict")
	// ErrRemoteService indicates a remote service answered with a failure
	ErrRemoteService = errors.New("remote service failure")
	// ErrInvalidConfiguration indicates configuration issues
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context information
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewError creates a new error with a formatted message
func NewError(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// ValidationError represents validation errors with field-specific information
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ConfigurationError represents malformed or missing settings. It is fatal at startup.
type ConfigurationError struct {
	Section string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Section != "" && e.Field != "" {
		return fmt.Sprintf("configuration error in section '%s', field '%s': %s", e.Section, e.Field, e.Reason)
	} else if e.Section != "" {
		return fmt.Sprintf("configuration error in section '%s': %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Is reports ErrInvalidConfiguration for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(section, field, reason string) *ConfigurationError {
	return &ConfigurationError{
		Section: section,
		Field:   field,
		Reason:  reason,
	}
}

// ConnectivityError means the transport was refused or dropped and the
// bounded retry policy of the caller has been spent.
type ConnectivityError struct {
	Op       string
	Target   string
	Attempts int
	Wrapped  error
}

func (e *ConnectivityError) Error() string {
	msg := fmt.Sprintf("connectivity error during %s to '%s'", e.Op, e.Target)
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s after %d attempt(s)", msg, e.Attempts)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", msg, e.Wrapped)
	}
	return msg
}

func (e *ConnectivityError) Unwrap() error {
	return e.Wrapped
}

// Is reports ErrNetworkFailure for every ConnectivityError.
func (e *ConnectivityError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// NewConnectivityError creates a new connectivity error
func NewConnectivityError(op, target string, attempts int, wrapped error) *ConnectivityError {
	return &ConnectivityError{
		Op:       op,
		Target:   target,
		Attempts: attempts,
		Wrapped:  wrapped,
	}
}

// LocalResourceError is a missing or unreadable local file. It is never retried.
type LocalResourceError struct {
	Op      string
	Path    string
	Wrapped error
}

func (e *LocalResourceError) Error() string {
	return fmt.Sprintf("local resource error during %s for '%s': %v", e.Op, e.Path, e.Wrapped)
}

func (e *LocalResourceError) Unwrap() error {
	return e.Wrapped
}

// NewLocalResourceError creates a new local resource error
func NewLocalResourceError(op, path string, wrapped error) *LocalResourceError {
	return &LocalResourceError{
		Op:      op,
		Path:    path,
		Wrapped: wrapped,
	}
}

// RemoteServiceError is a failure or conflict status returned by the
// registry or a notification backend.
type RemoteServiceError struct {
	Service    string
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed with HTTP %d: %s", e.Service, e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Service, e.Op, e.Message)
}

// Conflict reports whether the service rejected the request as a duplicate.
func (e *RemoteServiceError) Conflict() bool {
	return e.StatusCode == http.StatusConflict
}

// Is matches ErrRemoteService, and ErrConflict for 409 responses.
func (e *RemoteServiceError) Is(target error) bool {
	switch target {
	case ErrRemoteService:
		return true
	case ErrConflict:
		return e.Conflict()
	}
	return false
}

// NewRemoteServiceError creates a new remote service error
func NewRemoteServiceError(service, op string, statusCode int, message string) *RemoteServiceError {
	return &RemoteServiceError{
		Service:    service,
		Op:         op,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ErrorCollector helps collect multiple errors during processing
type ErrorCollector struct {
	errors []error
}

// AddWithContext adds an error with additional context
func (ec *ErrorCollector) AddWithContext(err error, context string) {
	if err != nil {
		ec.errors = append(ec.errors, WrapError(err, context))
	}
}

// Error returns the collected errors joined, or nil.
func (ec *ErrorCollector) Error() error {
	return errors.Join(ec.errors...)
}
