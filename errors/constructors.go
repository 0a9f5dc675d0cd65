package errors

import (
	"fmt"
	"strings"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *RecorderError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *RecorderError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ConfigType creates an error for a recognized option holding a value of the wrong type.
func ConfigType(key string, err error) *RecorderError {
	return Wrap(err, ErrCodeConfigInvalid, fmt.Sprintf("invalid type for option '%s'", key)).
		WithDetail("key", key)
}

// InvalidInput creates a generic input validation error
func InvalidInput(reason string) *RecorderError {
	return New(ErrCodeInvalidInput, reason)
}

// MissingFields creates a schema violation naming every absent field.
func MissingFields(actionType string, fields []string) *RecorderError {
	return New(ErrCodeSchemaViolation,
		fmt.Sprintf("action '%s' is missing required field(s): %s", actionType, strings.Join(fields, ", "))).
		WithDetail("type", actionType).
		WithDetail("fields", fields)
}

// UnknownActionType creates an error for a type outside the fixed vocabulary.
func UnknownActionType(actionType string) *RecorderError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("unknown action type '%s'", actionType)).
		WithDetail("type", actionType)
}

// SessionLimit creates an error for a session that reached its action ceiling.
func SessionLimit(sessionID string, limit int) *RecorderError {
	return New(ErrCodeSessionLimit,
		fmt.Sprintf("session '%s' reached the maximum of %d actions", sessionID, limit)).
		WithDetail("sessionId", sessionID).
		WithDetail("limit", limit)
}

// ParseError creates an error for a target file that could not be parsed.
func ParseError(path string, line, column int) *RecorderError {
	return New(ErrCodeParseError, fmt.Sprintf("parse error in %s at line %d, column %d", path, line, column)).
		WithDetail("path", path).
		WithDetail("line", line).
		WithDetail("column", column)
}

// InjectParseError creates an error for a generated fragment that could not be parsed.
func InjectParseError(line, column int) *RecorderError {
	return New(ErrCodeInjectParseError,
		fmt.Sprintf("parse error in code to inject at line %d, column %d", line, column)).
		WithDetail("line", line).
		WithDetail("column", column)
}

// AnchorNotFound creates an error for a file without the anchor call.
func AnchorNotFound(path, anchor string) *RecorderError {
	return New(ErrCodeAnchorNotFound, fmt.Sprintf("no anchor call %s() found in %s", anchor, path)).
		WithDetail("path", path).
		WithDetail("anchor", anchor)
}

// VerificationFailed creates an error for a spliced result that did not pass verification.
func VerificationFailed(path, reason string) *RecorderError {
	return New(ErrCodeVerificationFailed, fmt.Sprintf("verification failed for %s: %s", path, reason)).
		WithDetail("path", path)
}

// FileNotFound creates an error for a missing file.
func FileNotFound(path string) *RecorderError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithDetail("path", path)
}

// FileNotReadable creates an error for a file that cannot be opened for reading.
func FileNotReadable(path string, err error) *RecorderError {
	return Wrap(err, ErrCodeFileNotReadable, fmt.Sprintf("file is not readable: %s", path)).
		WithDetail("path", path)
}

// FileNotWritable creates an error for a file that cannot be opened for writing.
func FileNotWritable(path string, err error) *RecorderError {
	return Wrap(err, ErrCodeFileNotWritable, fmt.Sprintf("file is not writable: %s", path)).
		WithDetail("path", path)
}

// FileTooLarge creates an error for a file above the configured size ceiling.
func FileTooLarge(path string, size, limit int64) *RecorderError {
	return New(ErrCodeFileTooLarge, fmt.Sprintf("file %s is %d bytes, above the %d byte limit", path, size, limit)).
		WithDetail("path", path).
		WithDetail("size", size).
		WithDetail("limit", limit)
}

// BackupFailed creates a backup creation or restore failure error
func BackupFailed(path string, err error) *RecorderError {
	return Wrap(err, ErrCodeBackupFailed, fmt.Sprintf("backup operation failed for %s", path)).
		WithDetail("path", path)
}

// BackupsDisabled creates the error returned by restore when backups are turned off.
func BackupsDisabled() *RecorderError {
	return New(ErrCodeBackupsDisabled, "backups are disabled")
}

// StorageFailed creates a session archive failure error
func StorageFailed(op string, err error) *RecorderError {
	return Wrap(err, ErrCodeStorageFailed, fmt.Sprintf("session archive %s failed", op)).
		WithDetail("operation", op)
}

// Transient creates a retryable browser channel failure.
func Transient(op string, err error) *RecorderError {
	return Wrap(err, ErrCodeCommunicationTransient, fmt.Sprintf("communication failure during %s", op)).
		WithDetail("operation", op)
}

// SessionFailed creates a fatal session-level error.
func SessionFailed(sessionID string, err error) *RecorderError {
	return Wrap(err, ErrCodeSessionFailed, fmt.Sprintf("recording session '%s' failed", sessionID)).
		WithDetail("sessionId", sessionID)
}

// SessionTimeout creates an error for a session that exceeded its timeout.
func SessionTimeout(sessionID string, timeout string) *RecorderError {
	return New(ErrCodeSessionTimeout,
		fmt.Sprintf("recording session '%s' did not finish within %s", sessionID, timeout)).
		WithDetail("sessionId", sessionID).
		WithDetail("timeout", timeout)
}
