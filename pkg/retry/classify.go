// Package retry classifies failures into a stable taxonomy so callers can
// decide whether a retry is worthwhile and surface an actionable hint.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"syscall"
)

// Category groups failures by their underlying cause.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryTimeout    Category = "timeout"
	CategoryDNS        Category = "dns"
	CategoryPermission Category = "permission"
	CategoryNotFound   Category = "not_found"
	CategoryConfig     Category = "config"
	CategoryUnknown    Category = "unknown"
)

// Record is the classification of a single failure. Code and Message pass
// through from the caller; the remaining fields are derived.
type Record struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Retryable bool     `json:"retryable"`
	Category  Category `json:"category"`
	Hint      string   `json:"hint"`
}

// Error renders the record as a single actionable line.
func (r Record) Error() string {
	return fmt.Sprintf("%s: %s (%s)", r.Code, r.Message, r.Hint)
}

// Classify maps an error code and message onto the retry taxonomy. It is pure:
// the same inputs always produce the same record. Unrecognized inputs fall
// through to a non-retryable unknown record with a generic hint.
func Classify(code, message string) Record {
	rec := Record{Code: code, Message: message}
	probe := strings.ToLower(code + " " + message)

	switch {
	case containsAny(probe, "econnrefused", "connection refused", "connection_refused"):
		rec.Retryable = true
		rec.Category = CategoryNetwork
		rec.Hint = "the target refused the connection; check the service is listening and retry"
	case containsAny(probe, "etimedout", "timed out", "timed_out", "timeout", "deadline exceeded"):
		rec.Retryable = true
		rec.Category = CategoryTimeout
		rec.Hint = "the operation timed out; retry, or raise the timeout if it recurs"
	case containsAny(probe, "enotfound", "no such host", "dns", "name_not_resolved", "name resolution"):
		rec.Retryable = true
		rec.Category = CategoryDNS
		rec.Hint = "hostname lookup failed; verify the host and DNS configuration, then retry"
	case containsAny(probe, "eacces", "eperm", "permission denied", "access denied", "operation not permitted"):
		rec.Retryable = false
		rec.Category = CategoryPermission
		rec.Hint = "permission denied; adjust file or policy permissions before trying again"
	case containsAny(probe, "enoent", "no such file", "not found", "does not exist"):
		rec.Retryable = false
		rec.Category = CategoryNotFound
		rec.Hint = "the target does not exist; check the path or name"
	case containsAny(probe, "disabled_by_config", "disabled by config", "disabled in config"):
		rec.Retryable = false
		rec.Category = CategoryConfig
		rec.Hint = "this capability is switched off; enable it in configuration to proceed"
	default:
		rec.Retryable = false
		rec.Category = CategoryUnknown
		rec.Hint = "inspect the error message and address the underlying cause before retrying"
	}
	return rec
}

// FromError derives a record from a Go error, unwrapping common OS and
// network error types to a stable code before classification.
func FromError(err error) Record {
	if err == nil {
		return Record{Category: CategoryUnknown}
	}
	return Classify(codeForError(err), err.Error())
}

func codeForError(err error) string {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ETIMEDOUT), errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return "ETIMEDOUT"
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM), errors.Is(err, fs.ErrPermission):
		return "EACCES"
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOENT):
		return "ENOENT"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ENOTFOUND"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	return "UNKNOWN"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
