// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("event already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External collaborator errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "streak", "skill", "badge"
	Op      string // Operation that failed, e.g., "AwardXP", "RecordCompletion"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progression domain errors
var (
	ErrProgressionNotFound = NewDomainError("progression", "Find", ErrNotFound, "progression state not found")
	ErrInvalidXP           = NewDomainError("progression", "Validate", ErrNegativeValue, "xp must be non-negative")
	ErrInvalidCount        = NewDomainError("progression", "Validate", ErrValueOutOfRange, "count must be at least 1")
	ErrInvalidAction       = NewDomainError("progression", "Validate", ErrInvalidInput, "unknown xp action")
	ErrStaleProgression    = NewDomainError("progression", "Save", ErrOptimisticLock, "progression state was modified concurrently")
)

// Streak domain errors
var (
	ErrStreakNotFound      = NewDomainError("streak", "Find", ErrNotFound, "streak record not found")
	ErrStreakAlreadyActive = NewDomainError("streak", "Create", ErrInvalidState, "user already has an active streak")
	ErrStreakBroken        = NewDomainError("streak", "Record", ErrStateTransition, "cannot extend a broken streak")
)

// Skill domain errors
var (
	ErrSkillNotFound      = NewDomainError("skill", "Find", ErrNotFound, "skill profile not found")
	ErrInvalidScore       = NewDomainError("skill", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
	ErrUnknownSkill       = NewDomainError("skill", "Validate", ErrInvalidID, "unknown skill id")
	ErrUnknownCompetency  = NewDomainError("skill", "Validate", ErrInvalidID, "unknown competency id")
	ErrNoScorableAnswers  = NewDomainError("skill", "Score", ErrEmptyValue, "assessment has no scorable answers")
	ErrCompetencyUnscored = NewDomainError("skill", "Aggregate", ErrInvalidState, "no member skill has been assessed")
)

// Badge domain errors
var (
	ErrBadgeNotFound  = NewDomainError("badge", "Find", ErrNotFound, "badge definition not found")
	ErrDuplicateBadge = NewDomainError("badge", "Award", ErrAlreadyExists, "badge already awarded")
)

// Event processing errors
var (
	ErrDuplicateEvent = NewDomainError("events", "Process", ErrAlreadyProcessed, "event was already processed")
	ErrInvalidEventID = NewDomainError("events", "Validate", ErrInvalidID, "event id is required")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsDuplicateEvent checks if the error marks an already-processed event.
// Callers treat this as success-no-op, never as a failure.
func IsDuplicateEvent(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOptimisticLock) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
