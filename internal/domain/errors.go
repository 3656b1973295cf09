package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned for an unknown course or a missing progress record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStateTransition is the kind of every *TransitionError.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrPermissionDenied is returned when the actor lacks the role or ownership an operation needs.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidation is the kind of every *ValidationError.
	ErrValidation = errors.New("validation error")
	// ErrCompletionPolicyViolation is the kind of every *PolicyViolationError.
	ErrCompletionPolicyViolation = errors.New("completion policy violation")
	// ErrNoActiveAttempt is returned when an attempt is completed without one being open.
	ErrNoActiveAttempt = errors.New("no active attempt")
	// ErrDownstreamFailure marks a failed side effect; it is logged, never returned to callers.
	ErrDownstreamFailure = errors.New("downstream failure")
	// ErrVersionConflict is returned by stores when the supplied version is stale.
	ErrVersionConflict = errors.New("version conflict")
)

// TransitionError reports a lifecycle operation invoked from a disallowed status.
type TransitionError struct {
	Action Action
	From   CourseStatus
	To     CourseStatus
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("invalid state transition: unknown action %q from %s", e.Action, e.From)
	}
	return fmt.Sprintf("invalid state transition: cannot %s from %s to %s", e.Action, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }

// PolicyViolationError explains why an attempt was not accepted as a completion.
type PolicyViolationError struct {
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return "completion policy violation: " + e.Reason
}

func (e *PolicyViolationError) Is(target error) bool { return target == ErrCompletionPolicyViolation }

// ValidationError maps offending input fields to a message.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DownstreamError wraps the failure of a named side effect.
type DownstreamError struct {
	Effect string
	Err    error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Effect, e.Err)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

func (e *DownstreamError) Is(target error) bool { return target == ErrDownstreamFailure }
