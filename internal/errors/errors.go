package errors

import (
	"errors"
	"fmt"
)

// GujiError is the structured error type for GujiMCP.
// It carries enough context for logging, CLI output and MCP error mapping.
type GujiError struct {
	// Code is the unique error code (e.g., "ERR_301_BOOK_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, NotFound, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *GujiError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GujiError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *GujiError) Is(target error) bool {
	if t, ok := target.(*GujiError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *GujiError) WithDetail(key, value string) *GujiError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *GujiError) WithSuggestion(suggestion string) *GujiError {
	e.Suggestion = suggestion
	return e
}

// New creates a new GujiError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *GujiError {
	return &GujiError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code string, format string, args ...any) *GujiError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a GujiError from an existing error.
// The error's message becomes the GujiError message.
func Wrap(code string, err error) *GujiError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *GujiError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates a corpus read error.
func IOError(message string, cause error) *GujiError {
	return New(ErrCodeCorpusRead, message, cause)
}

// InvalidArgument creates a validation error for a tool argument.
func InvalidArgument(field, message string) *GujiError {
	return New(ErrCodeInvalidArgument, fmt.Sprintf("%s: %s", field, message), nil).
		WithDetail("field", field)
}

// OutOfRange creates a validation error for a numeric argument outside [lo, hi].
func OutOfRange(field string, value, lo, hi int) *GujiError {
	return New(ErrCodeOutOfRange, fmt.Sprintf("%s must be between %d and %d, got %d", field, lo, hi, value), nil).
		WithDetail("field", field)
}

// BookNotFound creates a not-found error for a book identifier.
func BookNotFound(bookID string) *GujiError {
	return New(ErrCodeBookNotFound, fmt.Sprintf("book %q not found", bookID), nil).
		WithDetail("book_id", bookID).
		WithSuggestion("Use search_ancient_texts to discover valid book ids")
}

// ChapterNotFound creates a not-found error for a chapter of a book.
func ChapterNotFound(bookID, chapterID string) *GujiError {
	return New(ErrCodeChapterNotFound, fmt.Sprintf("chapter %q not found in book %q", chapterID, bookID), nil).
		WithDetail("book_id", bookID).
		WithDetail("chapter_id", chapterID).
		WithSuggestion("Use extract_book_info to list the chapters of a book")
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *GujiError {
	return New(ErrCodeInternal, message, cause)
}

// IsInvalidArgument reports whether err (or anything it wraps) is a validation error.
func IsInvalidArgument(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// IsNotFound reports whether err (or anything it wraps) is a not-found error.
func IsNotFound(err error) bool {
	return GetCategory(err) == CategoryNotFound
}

// IsInternal reports whether err is an internal error. Errors that are not
// GujiErrors are internal.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}
	var ge *GujiError
	if !errors.As(err, &ge) {
		return true
	}
	return ge.Category == CategoryInternal
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ge *GujiError
	if errors.As(err, &ge) {
		return ge.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a GujiError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ge *GujiError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// GetCategory extracts the category from a GujiError in the chain.
// Returns empty string if there is none.
func GetCategory(err error) Category {
	var ge *GujiError
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}
