package browser

import (
	"errors"
	"fmt"

	"github.com/quillagent/quill/pkg/retry"
)

// Stable decision and failure codes for browser operations.
const (
	CodeRuntimeDisabled    = "BROWSER_RUNTIME_DISABLED"
	CodePolicyDeny         = "BROWSER_POLICY_DENY"
	CodeApprovalRequired   = "BROWSER_POLICY_APPROVAL_REQUIRED"
	CodeOpenSessionFailed  = "OPEN_SESSION_FAILED"
	CodeNavigateFailed     = "NAVIGATE_FAILED"
	CodeSnapshotFailed     = "SNAPSHOT_FAILED"
	CodeScreenshotFailed   = "SCREENSHOT_FAILED"
	CodeCloseSessionFailed = "CLOSE_SESSION_FAILED"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionLimit       = "SESSION_LIMIT"
	CodeActionFailed       = "ACTION_FAILED"
)

// Sentinel errors for errors.Is checks.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
	ErrRuntimeDisabled = errors.New("browser runtime is disabled")
)

// Error is a browser failure with a stable code and a retry classification.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retry classifies the failure for callers deciding whether to retry.
func (e *Error) Retry() retry.Record {
	if e.Err != nil {
		rec := retry.FromError(e.Err)
		rec.Code = e.Code
		rec.Message = e.Message
		return rec
	}
	return retry.Classify(e.Code, e.Message)
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}
