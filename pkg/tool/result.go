package tool

import (
	"encoding/json"
	"fmt"

	"github.com/quillagent/quill/pkg/retry"
)

// Result is the outcome of a tool execution. Failures carry a stable code
// plus the retry classification so callers can decide what to do next.
type Result struct {
	OK            bool           `json:"ok"`
	Data          map[string]any `json:"data,omitempty"`
	Code          string         `json:"code,omitempty"`
	Message       string         `json:"message,omitempty"`
	Retryable     bool           `json:"retryable"`
	RetryCategory string         `json:"retry_category,omitempty"`
	RetryHint     string         `json:"retry_hint,omitempty"`
}

// Success wraps data in an ok result.
func Success(data map[string]any) *Result {
	return &Result{OK: true, Data: data}
}

// Text wraps a plain string in an ok result.
func Text(s string) *Result {
	return Success(map[string]any{"content": s})
}

// Failure builds an error result from a code, message, and classification.
func Failure(code, message string, rec retry.Record) *Result {
	return &Result{
		OK:            false,
		Code:          code,
		Message:       message,
		Retryable:     rec.Retryable,
		RetryCategory: string(rec.Category),
		RetryHint:     rec.Hint,
	}
}

// FailureFromError classifies err and builds an error result under code.
func FailureFromError(code string, err error) *Result {
	rec := retry.FromError(err)
	return Failure(code, err.Error(), rec)
}

// Render produces the string handed back to the model. Successful results
// with a single content string return it verbatim; everything else is JSON.
func (r *Result) Render() string {
	if r.OK {
		if len(r.Data) == 1 {
			if s, ok := r.Data["content"].(string); ok {
				return s
			}
		}
		body, err := json.MarshalIndent(r.Data, "", "  ")
		if err != nil {
			return fmt.Sprintf("Error: render result: %v", err)
		}
		return string(body)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Error: %s: %s", r.Code, r.Message)
	}
	return string(body)
}
