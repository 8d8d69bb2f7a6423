package validation

import (
	"context"
	"time"
)

// Repository defines persistence for task validations.
// Every lookup is scoped by user id; a row owned by someone else is reported
// exactly like a missing row.
type Repository interface {
	// Register inserts v unless a validation for (UserID, EventID) exists.
	// Returns the stored row and whether it was created by this call.
	Register(ctx context.Context, v *TaskValidation) (*TaskValidation, bool, error)

	// FindByID returns the user's validation or shared.ErrValidationNotFound.
	FindByID(ctx context.Context, userID, id string) (*TaskValidation, error)

	// ListPending returns pending validations ordered by event date ascending.
	ListPending(ctx context.Context, userID string) ([]*TaskValidation, error)

	// CountPending counts pending validations.
	CountPending(ctx context.Context, userID string) (int, error)

	// Resolve atomically sets the terminal state if the row is still pending.
	// Fails with shared.ErrAlreadyResolved or shared.ErrValidationNotFound.
	Resolve(ctx context.Context, userID, id string, completed bool, notes string, at time.Time) (*TaskValidation, error)
}
