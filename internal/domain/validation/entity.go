// Package validation tracks calendar activities waiting for the user to
// confirm whether they actually happened.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

// Status is the derived tri-state of a validation.
type Status string

const (
	StatusPending      Status = "pending"
	StatusCompleted    Status = "completed"
	StatusNotCompleted Status = "not_completed"
)

// TaskValidation is one calendar activity pending a yes/no confirmation.
// It is resolved exactly once and then leaves the pending list.
type TaskValidation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	EventDate  time.Time `json:"event_date"`

	// Completed - nil while pending, then the user's answer.
	Completed *bool `json:"completed"`

	Notes       string     `json:"notes,omitempty"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewTaskValidation creates a pending validation.
func NewTaskValidation(userID, eventID, eventTitle string, eventDate, now time.Time) (*TaskValidation, error) {
	v := &TaskValidation{
		ID:         uuid.NewString(),
		UserID:     userID,
		EventID:    strings.TrimSpace(eventID),
		EventTitle: strings.TrimSpace(eventTitle),
		EventDate:  eventDate.UTC(),
		CreatedAt:  now.UTC(),
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks required fields.
func (v *TaskValidation) Validate() error {
	if strings.TrimSpace(v.UserID) == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidValidation)
	}
	if v.EventID == "" {
		return fmt.Errorf("%w: event id is required", shared.ErrInvalidValidation)
	}
	if v.EventDate.IsZero() {
		return fmt.Errorf("%w: event date is required", shared.ErrInvalidValidation)
	}
	return nil
}

// Status derives the tri-state from Completed.
func (v *TaskValidation) Status() Status {
	switch {
	case v.Completed == nil:
		return StatusPending
	case *v.Completed:
		return StatusCompleted
	default:
		return StatusNotCompleted
	}
}

// IsPending reports whether the validation still awaits an answer.
func (v *TaskValidation) IsPending() bool {
	return v.Completed == nil
}

// Resolve moves a pending validation to its terminal state.
func (v *TaskValidation) Resolve(completed bool, notes string, at time.Time) error {
	if !v.IsPending() {
		return shared.ErrAlreadyResolved
	}
	at = at.UTC()
	v.Completed = &completed
	v.Notes = strings.TrimSpace(notes)
	v.ValidatedAt = &at
	return nil
}
