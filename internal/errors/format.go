package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

func asGujiError(err error) *GujiError {
	var ge *GujiError
	if errors.As(err, &ge) {
		return ge
	}
	return Wrap(ErrCodeInternal, err)
}

// FormatForUser returns a user-friendly error message.
// If debug is true, the underlying cause is included.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var ge *GujiError
	if !errors.As(err, &ge) {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(ge.Message)
	sb.WriteString("\n")

	if ge.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(ge.Suggestion)
		sb.WriteString("\n")
	}

	if debug && ge.Cause != nil {
		sb.WriteString("\nCause: ")
		sb.WriteString(ge.Cause.Error())
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", ge.Code))
	return sb.String()
}

// FormatForCLI formats an error for CLI output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ge := asGujiError(err)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ge.Message))
	if ge.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ge.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ge.Code))
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ge := asGujiError(err)
	je := jsonError{
		Code:       ge.Code,
		Message:    ge.Message,
		Category:   string(ge.Category),
		Severity:   string(ge.Severity),
		Details:    ge.Details,
		Suggestion: ge.Suggestion,
	}
	if ge.Cause != nil {
		je.Cause = ge.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs returns slog-style key-value pairs describing err.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var ge *GujiError
	if !errors.As(err, &ge) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", ge.Code,
		"error", ge.Message,
		"category", string(ge.Category),
	}
	if ge.Cause != nil {
		attrs = append(attrs, "cause", ge.Cause.Error())
	}
	for k, v := range ge.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
