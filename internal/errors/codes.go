// Package errors provides structured error handling for GujiMCP.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (corpus loading)
//   - 3XX: Not found errors (book, chapter)
//   - 4XX: Validation errors (invalid tool arguments)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates corpus file and directory errors.
	CategoryIO Category = "IO"
	// CategoryNotFound indicates an identifier that does not resolve.
	CategoryNotFound Category = "NOT_FOUND"
	// CategoryValidation indicates malformed or out-of-range arguments.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates a broken invariant.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// IO errors (200-299)
	ErrCodeCorpusNotFound = "ERR_201_CORPUS_NOT_FOUND"
	ErrCodeCorpusRead     = "ERR_202_CORPUS_READ"
	ErrCodeManifestBad    = "ERR_203_MANIFEST_INVALID"
	ErrCodeDuplicateID    = "ERR_204_DUPLICATE_ID"

	// Not found errors (300-399)
	ErrCodeBookNotFound    = "ERR_301_BOOK_NOT_FOUND"
	ErrCodeChapterNotFound = "ERR_302_CHAPTER_NOT_FOUND"

	// Validation errors (400-499)
	ErrCodeInvalidArgument = "ERR_401_INVALID_ARGUMENT"
	ErrCodeEmptyKeyword    = "ERR_402_EMPTY_KEYWORD"
	ErrCodeKeywordTooLong  = "ERR_403_KEYWORD_TOO_LONG"
	ErrCodeInvalidSort     = "ERR_404_INVALID_SORT"
	ErrCodeOutOfRange      = "ERR_405_OUT_OF_RANGE"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeIndexCorrupt     = "ERR_502_INDEX_CORRUPT"
	ErrCodeExtractionFailed = "ERR_503_EXTRACTION_FAILED"
	ErrCodeIndexFailed      = "ERR_504_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "301" from "ERR_301_BOOK_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNotFound
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupt, ErrCodeCorpusNotFound:
		return SeverityFatal
	case ErrCodeBookNotFound, ErrCodeChapterNotFound:
		return SeverityInfo
	}

	if categoryFromCode(code) == CategoryValidation {
		return SeverityWarning
	}
	return SeverityError
}
