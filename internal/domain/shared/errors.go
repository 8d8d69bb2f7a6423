// Package shared contains common domain types, errors and events used across
// the progression engine. This package has zero external dependencies.
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

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "validation", "quiz"
	Op      string // Operation that failed, e.g., "AddXP", "Resolve"
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

// Progress ledger errors
var (
	ErrInvalidAccrual = NewDomainError("progress", "AddXP", ErrInvalidInput, "invalid accrual")
)

// Task validation errors
var (
	ErrValidationNotFound = NewDomainError("validation", "Find", ErrNotFound, "task validation not found")
	ErrAlreadyResolved    = NewDomainError("validation", "Resolve", ErrAlreadyProcessed, "task validation already resolved")
	ErrInvalidValidation  = NewDomainError("validation", "Validate", ErrInvalidInput, "invalid task validation")
)

// Quiz errors
var (
	ErrQuizNotFound            = NewDomainError("quiz", "Find", ErrNotFound, "quiz not found")
	ErrQuestionNotFound        = NewDomainError("quiz", "FindQuestion", ErrNotFound, "question not found")
	ErrDuplicateQuiz           = NewDomainError("quiz", "Create", ErrAlreadyExists, "quiz already exists for this event")
	ErrInvalidQuiz             = NewDomainError("quiz", "Validate", ErrInvalidInput, "invalid quiz")
	ErrInvalidAnswerIndex      = NewDomainError("quiz", "Answer", ErrValueOutOfRange, "answer index must be between 0 and 3")
	ErrQuestionAlreadyAnswered = NewDomainError("quiz", "Answer", ErrAlreadyProcessed, "question already answered")
	ErrQuizCompleted           = NewDomainError("quiz", "Answer", ErrInvalidState, "quiz already completed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error reports a state the caller raced or repeated into.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrInvalidState)
}
