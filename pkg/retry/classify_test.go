package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		category  Category
		retryable bool
	}{
		{"connection refused code", "ECONNREFUSED", "dial tcp 127.0.0.1:9222", CategoryNetwork, true},
		{"connection refused message", "", "dial tcp: connection refused", CategoryNetwork, true},
		{"timeout code", "ETIMEDOUT", "read tcp", CategoryTimeout, true},
		{"deadline message", "", "context deadline exceeded", CategoryTimeout, true},
		{"dns code", "ENOTFOUND", "lookup example.invalid", CategoryDNS, true},
		{"dns message", "", "lookup nowhere: no such host", CategoryDNS, true},
		{"permission code", "EACCES", "open /etc/shadow", CategoryPermission, false},
		{"permission message", "", "mkdir /root/x: permission denied", CategoryPermission, false},
		{"not found code", "ENOENT", "stat /tmp/gone", CategoryNotFound, false},
		{"not found message", "", "session abc not found", CategoryNotFound, false},
		{"disabled code", "DISABLED_BY_CONFIG", "browser support is off", CategoryConfig, false},
		{"unknown", "E_WEIRD", "unexplained failure", CategoryUnknown, false},
		{"empty inputs", "", "", CategoryUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(tt.code, tt.message)
			if rec.Category != tt.category {
				t.Errorf("category = %q, want %q", rec.Category, tt.category)
			}
			if rec.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", rec.Retryable, tt.retryable)
			}
			if rec.Code != tt.code || rec.Message != tt.message {
				t.Errorf("code/message not passed through: got %q/%q", rec.Code, rec.Message)
			}
			if rec.Hint == "" {
				t.Error("hint must never be empty")
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	a := Classify("ETIMEDOUT", "slow upstream")
	b := Classify("ETIMEDOUT", "slow upstream")
	if a != b {
		t.Errorf("same inputs produced different records: %+v vs %+v", a, b)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
	}{
		{"wrapped econnrefused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), CategoryNetwork},
		{"deadline exceeded", context.DeadlineExceeded, CategoryTimeout},
		{"fs not exist", os.ErrNotExist, CategoryNotFound},
		{"fs permission", os.ErrPermission, CategoryPermission},
		{"dns error", &net.DNSError{Err: "no such host", Name: "x.invalid"}, CategoryDNS},
		{"plain error", errors.New("something odd"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := FromError(tt.err)
			if rec.Category != tt.category {
				t.Errorf("category = %q, want %q", rec.Category, tt.category)
			}
		})
	}
}

func TestFromErrorNil(t *testing.T) {
	rec := FromError(nil)
	if rec.Retryable {
		t.Error("nil error must not be retryable")
	}
}
