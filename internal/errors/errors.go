package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Path    string
	Cause   error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeInvalidPath          = "INVALID_PATH"
	CodeNoMatchingFiles      = "NO_MATCHING_FILES"
	CodeRowLengthMismatch    = "ROW_LENGTH_MISMATCH"
	CodeFileAccess           = "FILE_ACCESS"
	CodeMasterInSource       = "MASTER_IN_SOURCE"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeMalformedInput       = "MALFORMED_INPUT"
	CodeInvalidConfig        = "INVALID_CONFIG"
	CodeDeclined             = "DECLINED"
	CodeInternal             = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of the
// innermost AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether any AppError in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// GetPath returns the first non-empty path found in the chain.
func GetPath(err error) string {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Path != "" {
			return appErr.Path
		}
		err = stderrors.Unwrap(err)
	}
	return ""
}

func InvalidPath(path, reason string) *AppError {
	return &AppError{Code: CodeInvalidPath, Message: reason, Path: path}
}

func NoMatchingFiles(dir, pattern string) *AppError {
	return &AppError{
		Code:    CodeNoMatchingFiles,
		Message: fmt.Sprintf("no files matching %q", pattern),
		Path:    dir,
	}
}

func RowLengthMismatch(path string, got, want int) *AppError {
	return &AppError{
		Code:    CodeRowLengthMismatch,
		Message: fmt.Sprintf("row has %d values, header has %d columns", got, want),
		Path:    path,
	}
}

func FileAccess(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeFileAccess,
		Message: "cannot access file (close it in other programs and re-run)",
		Path:    path,
		Cause:   cause,
	}
}

func MasterInSource(path string) *AppError {
	return &AppError{
		Code:    CodeMasterInSource,
		Message: "master file already present in source directory; remove it and try again",
		Path:    path,
	}
}

func ConfirmationRequired(path string) *AppError {
	return &AppError{
		Code:    CodeConfirmationRequired,
		Message: "master file already exists, overwrite must be confirmed",
		Path:    path,
	}
}

func MalformedInput(path, reason string) *AppError {
	return &AppError{Code: CodeMalformedInput, Message: reason, Path: path}
}

func InvalidConfig(message string) *AppError {
	return New(CodeInvalidConfig, message)
}

func Declined(message string) *AppError {
	return New(CodeDeclined, message)
}
