package errors

import (
	"fmt"
)

// Kind classifies scan-time problems. Scan errors are collected, never thrown.
type Kind string

const (
	// KindParse indicates malformed marker or attribute syntax in one file
	KindParse Kind = "parse"
	// KindValidation indicates a structurally invalid marker path or attribute value
	KindValidation Kind = "validation"
	// KindIO indicates a file could not be read
	KindIO Kind = "io"
)

// ErrorCode represents stable error codes for programmatic failures
type ErrorCode string

const (
	// ConfigInvalid indicates the configuration could not be loaded or validated
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// OutputFailed indicates the schema artifacts could not be read or written
	OutputFailed ErrorCode = "OUTPUT_FAILED"
	// SyncFailed indicates the database sync pass failed
	SyncFailed ErrorCode = "SYNC_FAILED"
	// WatchFailed indicates the file watcher could not be started
	WatchFailed ErrorCode = "WATCH_FAILED"
	// ParserUnavailable indicates tree-sitter is not compiled in
	ParserUnavailable ErrorCode = "PARSER_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ScanError is a per-file or per-field problem found during a scan.
type ScanError struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Path    string `json:"path,omitempty"`
	cause   error
}

// NewScanError creates a new ScanError
func NewScanError(kind Kind, message string, cause error) *ScanError {
	return &ScanError{
		Kind:    kind,
		Message: message,
		cause:   cause,
	}
}

// Parse creates a parse error for a file location
func Parse(file string, line, column int, message string) *ScanError {
	return NewScanError(KindParse, message, nil).At(file, line, column)
}

// Validation creates a validation error for a marker path
func Validation(file string, line, column int, path, message string) *ScanError {
	e := NewScanError(KindValidation, message, nil).At(file, line, column)
	e.Path = path
	return e
}

// IO creates an I/O error for a file
func IO(file string, cause error) *ScanError {
	return NewScanError(KindIO, "failed to read file", cause).At(file, 0, 0)
}

// At sets the source location
func (e *ScanError) At(file string, line, column int) *ScanError {
	e.File = file
	e.Line = line
	e.Column = column
	return e
}

// Location returns "file:line:column", omitting unknown parts
func (e *ScanError) Location() string {
	switch {
	case e.File == "":
		return ""
	case e.Line == 0:
		return e.File
	case e.Column == 0:
		return fmt.Sprintf("%s:%d", e.File, e.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path %q)", msg, e.Path)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if loc := e.Location(); loc != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, loc, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.cause
}

// Error represents a programmatic failure with a stable code
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CountByKind tallies scan errors per kind
func CountByKind(errs []*ScanError) map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range errs {
		if e != nil {
			counts[e.Kind]++
		}
	}
	return counts
}
