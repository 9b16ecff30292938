package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// File watcher errors
	ErrCodeWatchFailed ErrorCode = "WATCH_FAILED"
	ErrCodeStatFailed  ErrorCode = "STAT_FAILED"

	// Push channel errors
	ErrCodeBroadcastFailed  ErrorCode = "BROADCAST_FAILED"
	ErrCodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"

	// Hot-swap errors
	ErrCodeModuleFetch   ErrorCode = "MODULE_FETCH_FAILED"
	ErrCodeModuleExecute ErrorCode = "MODULE_EXECUTE_FAILED"
	ErrCodeModuleUnknown ErrorCode = "MODULE_UNKNOWN"

	// Store errors
	ErrCodeInvalidBinding ErrorCode = "INVALID_BINDING"
	ErrCodeInvalidView    ErrorCode = "INVALID_VIEW"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// DevError represents a structured error with context
type DevError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *DevError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DevError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *DevError) WithDetail(key string, value interface{}) *DevError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *DevError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new DevError
func New(code ErrorCode, message string) *DevError {
	return &DevError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a DevError
func Wrap(err error, code ErrorCode, message string) *DevError {
	return &DevError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific DevError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	devErr, ok := err.(*DevError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return devErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	devErr, ok := err.(*DevError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return devErr.Code
}
