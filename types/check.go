// Package types contains shared types used across the kern-acceptor harness.
package types

import (
	"errors"
	"fmt"
	"time"
)

// CheckStatus represents the possible outcomes of a check execution
type CheckStatus string

const (
	CheckStatusPass  CheckStatus = "pass"
	CheckStatusFail  CheckStatus = "fail"
	CheckStatusError CheckStatus = "error"
)

// CheckKind distinguishes checks that observe a live guest process from
// checks whose verdict comes from self-contained assertions.
type CheckKind string

const (
	CheckKindProcess CheckKind = "process"
	CheckKindLogical CheckKind = "logical"
)

// CheckMetadata identifies a registered check. The ID is unique within a run
// and metadata is immutable once the check is registered.
type CheckMetadata struct {
	ID      string
	Name    string
	Kind    CheckKind
	Suite   string
	Timeout time.Duration
}

// GetName returns a display name for the check
func (m CheckMetadata) GetName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// CheckResult captures the outcome of a single check run
type CheckResult struct {
	Metadata CheckMetadata
	Status   CheckStatus
	Error    error
	Duration time.Duration
	Serial   string   // captured serial console output, for process checks
	Details  []string // diagnostic sub-lines reported by the check
	TimedOut bool     // guest had to be forcibly reclaimed
}

// AssertionError marks a normal, identified violation of a check's expected
// condition. The runner classifies it as a failure rather than an
// infrastructure error.
type AssertionError struct {
	Assertion string
	Msg       string
}

func (e *AssertionError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("assertion failed: %s", e.Assertion)
	}
	return fmt.Sprintf("assertion failed: %s: %s", e.Assertion, e.Msg)
}

// NewAssertionError creates a new AssertionError
func NewAssertionError(assertion, format string, args ...any) *AssertionError {
	return &AssertionError{Assertion: assertion, Msg: fmt.Sprintf(format, args...)}
}

// IsAssertionError checks if the error is or wraps an AssertionError
func IsAssertionError(err error) bool {
	var assertErr *AssertionError
	return err != nil && errors.As(err, &assertErr)
}
