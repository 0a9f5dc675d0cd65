package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Input and configuration errors
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeSchemaViolation  ErrorCode = "SCHEMA_VIOLATION"
	ErrCodeSessionLimit     ErrorCode = "SESSION_LIMIT"

	// Structural errors (source or injected code)
	ErrCodeParseError         ErrorCode = "PARSE_ERROR"
	ErrCodeInjectParseError   ErrorCode = "INJECT_PARSE_ERROR"
	ErrCodeAnchorNotFound     ErrorCode = "ANCHOR_NOT_FOUND"
	ErrCodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"

	// Environment errors
	ErrCodeFileNotFound    ErrorCode = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable ErrorCode = "FILE_NOT_READABLE"
	ErrCodeFileNotWritable ErrorCode = "FILE_NOT_WRITABLE"
	ErrCodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"
	ErrCodeBackupFailed    ErrorCode = "BACKUP_FAILED"
	ErrCodeBackupsDisabled ErrorCode = "BACKUPS_DISABLED"
	ErrCodeStorageFailed   ErrorCode = "STORAGE_FAILED"

	// Browser channel errors
	ErrCodeCommunicationTransient ErrorCode = "COMMUNICATION_TRANSIENT"

	// Session errors
	ErrCodeSessionFailed  ErrorCode = "SESSION_FAILED"
	ErrCodeSessionTimeout ErrorCode = "SESSION_TIMEOUT"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Category groups error codes by how callers are expected to react.
type Category string

const (
	CategoryInvalidInput Category = "invalid_input"
	CategoryStructural   Category = "structural"
	CategoryEnvironment  Category = "environment"
	CategoryTransient    Category = "transient_communication"
	CategorySession      Category = "session"
	CategoryInternal     Category = "internal"
)

var categories = map[ErrorCode]Category{
	ErrCodeInvalidInput:     CategoryInvalidInput,
	ErrCodeConfigNotFound:   CategoryInvalidInput,
	ErrCodeConfigInvalid:    CategoryInvalidInput,
	ErrCodeConfigValidation: CategoryInvalidInput,
	ErrCodeSchemaViolation:  CategoryInvalidInput,
	ErrCodeSessionLimit:     CategoryInvalidInput,

	ErrCodeParseError:         CategoryStructural,
	ErrCodeInjectParseError:   CategoryStructural,
	ErrCodeAnchorNotFound:     CategoryStructural,
	ErrCodeVerificationFailed: CategoryStructural,

	ErrCodeFileNotFound:    CategoryEnvironment,
	ErrCodeFileNotReadable: CategoryEnvironment,
	ErrCodeFileNotWritable: CategoryEnvironment,
	ErrCodeFileTooLarge:    CategoryEnvironment,
	ErrCodeBackupFailed:    CategoryEnvironment,
	ErrCodeBackupsDisabled: CategoryEnvironment,
	ErrCodeStorageFailed:   CategoryEnvironment,

	ErrCodeCommunicationTransient: CategoryTransient,

	ErrCodeSessionFailed:  CategorySession,
	ErrCodeSessionTimeout: CategorySession,
}

// RecorderError represents a structured error with context
type RecorderError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *RecorderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *RecorderError) WithDetail(key string, value interface{}) *RecorderError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Category returns the taxonomy bucket of the error code.
func (e *RecorderError) Category() Category {
	return CategoryOf(e.Code)
}

// ToJSON converts the error to JSON
func (e *RecorderError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new RecorderError
func New(code ErrorCode, message string) *RecorderError {
	return &RecorderError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a RecorderError
func Wrap(err error, code ErrorCode, message string) *RecorderError {
	return &RecorderError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific RecorderError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	recErr, ok := err.(*RecorderError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if recErr.Code == code {
		return true
	}
	return recErr.Cause != nil && Is(recErr.Cause, code)
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	recErr, ok := err.(*RecorderError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return recErr.Code
}

// As returns the outermost RecorderError in the chain, if any.
func As(err error) (*RecorderError, bool) {
	for err != nil {
		if recErr, ok := err.(*RecorderError); ok {
			return recErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// CategoryOf maps an error code onto its category. Unknown codes are internal.
func CategoryOf(code ErrorCode) Category {
	if c, ok := categories[code]; ok {
		return c
	}
	return CategoryInternal
}

// Retryable reports whether err may succeed when attempted again.
// Only transient communication failures qualify.
func Retryable(err error) bool {
	return CategoryOf(GetCode(err)) == CategoryTransient
}
