package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Error wrapping preserves original error
func TestGujiError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("open book.yaml: permission denied")

	// When: wrapping with GujiError
	gujiErr := New(ErrCodeCorpusRead, "cannot read manifest", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, gujiErr)
	assert.Equal(t, originalErr, errors.Unwrap(gujiErr))
	assert.True(t, errors.Is(gujiErr, originalErr))
}

func TestGujiError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "book not found",
			code:     ErrCodeBookNotFound,
			message:  "book missing",
			expected: "[ERR_301_BOOK_NOT_FOUND] book missing",
		},
		{
			name:     "validation error",
			code:     ErrCodeEmptyKeyword,
			message:  "keyword is empty",
			expected: "[ERR_402_EMPTY_KEYWORD] keyword is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestGujiError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := BookNotFound("LUNYU")
	err2 := BookNotFound("MENGZI")

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, ChapterNotFound("LUNYU", "xueer")))
}

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeCorpusRead, CategoryIO},
		{ErrCodeChapterNotFound, CategoryNotFound},
		{ErrCodeInvalidSort, CategoryValidation},
		{ErrCodeIndexCorrupt, CategoryInternal},
		{"BAD", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.category, New(tt.code, "x", nil).Category)
		})
	}
}

func TestKindHelpers_ClassifyWrappedErrors(t *testing.T) {
	// Given: typed errors wrapped with fmt.Errorf
	invalid := fmt.Errorf("search: %w", OutOfRange("limit", 0, 1, 100))
	notFound := fmt.Errorf("lookup: %w", BookNotFound("X"))
	internal := fmt.Errorf("index: %w", New(ErrCodeIndexCorrupt, "dangling hit", nil))
	plain := errors.New("boom")

	// Then: each helper sees through the wrapping
	assert.True(t, IsInvalidArgument(invalid))
	assert.False(t, IsNotFound(invalid))
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsInternal(notFound))
	assert.True(t, IsInternal(internal))
	assert.True(t, IsInternal(plain), "untyped errors are internal")
	assert.False(t, IsInternal(nil))
}

func TestGujiError_WithDetail_AddsContext(t *testing.T) {
	// Given: a chapter error
	err := ChapterNotFound("LUNYU", "C9")

	// Then: both ids are recorded as details
	assert.Equal(t, "LUNYU", err.Details["book_id"])
	assert.Equal(t, "C9", err.Details["chapter_id"])
	assert.NotEmpty(t, err.Suggestion)
}

func TestInvalidArgument_NamesField(t *testing.T) {
	err := InvalidArgument("sortBy", "unknown value \"pages\"")

	assert.Equal(t, ErrCodeInvalidArgument, err.Code)
	assert.Equal(t, "sortBy", err.Details["field"])
	assert.Contains(t, err.Message, "sortBy")
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, SeverityFatal, New(ErrCodeIndexCorrupt, "x", nil).Severity)
	assert.Equal(t, SeverityInfo, BookNotFound("x").Severity)
	assert.Equal(t, SeverityWarning, OutOfRange("page", 0, 1, 10).Severity)
	assert.True(t, IsFatal(fmt.Errorf("wrap: %w", New(ErrCodeCorpusNotFound, "x", nil))))
}

func TestGetCode_NonGujiError(t *testing.T) {
	assert.Empty(t, GetCode(errors.New("plain")))
	assert.Empty(t, GetCategory(nil))
	assert.Equal(t, ErrCodeEmptyKeyword, GetCode(fmt.Errorf("x: %w", New(ErrCodeEmptyKeyword, "e", nil))))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}
