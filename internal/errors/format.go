package errors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal output.
//
//	Error: method "charge" not found
//	  Hint: select the method name or its def line
//	  Code: ERR_501_METHOD_NOT_FOUND
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	e, ok := As(err)
	if !ok {
		e = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", e.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", e.Code)
	return sb.String()
}

// Notification returns the one-line form shown next to a skipped method or file.
func Notification(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		if e.Suggestion != "" {
			return fmt.Sprintf("%s (%s)", e.Message, e.Suggestion)
		}
		return e.Message
	}
	return err.Error()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	e, ok := As(err)
	if !ok {
		e = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       e.Code,
		Message:    e.Message,
		Category:   string(e.Category),
		Severity:   string(e.Severity),
		Details:    e.Details,
		Suggestion: e.Suggestion,
		Retryable:  e.Retryable,
	}
	if e.Cause != nil {
		je.Cause = e.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog returns slog-ready attributes as alternating key/value pairs.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	e, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", e.Code,
		"message", e.Message,
		"category", string(e.Category),
		"retryable", e.Retryable,
	}
	if e.Cause != nil {
		attrs = append(attrs, "cause", e.Cause.Error())
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, "detail_"+k, e.Details[k])
	}
	return attrs
}
